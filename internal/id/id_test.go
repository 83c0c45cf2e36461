package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunID_Format(t *testing.T) {
	ids := make(map[string]bool)

	for range 200 {
		id, err := RunID()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(id, "run-"), id)

		// NanoID default is 21 URL-safe characters.
		part := strings.TrimPrefix(id, "run-")
		assert.Len(t, part, 21)
		for _, char := range part {
			assert.True(t,
				(char >= 'A' && char <= 'Z') ||
					(char >= 'a' && char <= 'z') ||
					(char >= '0' && char <= '9') ||
					char == '_' || char == '-',
				"Character %c should be URL-safe", char)
		}

		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
}

func TestGenerate_Prefix(t *testing.T) {
	id, err := Generate("bundle")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "bundle-"))
	assert.Len(t, id, len("bundle")+1+21)
}

func TestSessionID_Deterministic(t *testing.T) {
	a := SessionID("e481f51cbdc54678b7cc49136f2d6af7")
	b := SessionID("e481f51cbdc54678b7cc49136f2d6af7")
	c := SessionID("53cdb2fc8bc7dce0b6741e2150273451")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestSequential(t *testing.T) {
	assert.Equal(t, "order-0007", Sequential("order", 7))
	assert.Equal(t, "p-12345", Sequential("p", 12345))
}

func BenchmarkSessionID(b *testing.B) {
	for b.Loop() {
		SessionID("order-0001")
	}
}
