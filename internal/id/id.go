package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// sessionNamespace scopes session UUIDs derived from order IDs.
//
//nolint:gochecknoglobals // Fixed namespace.
var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("liveplan/session"))

// Generate returns prefix-<nanoid>, e.g. "run-V1StGXR8_Z5jdHi6B-myT". It fails
// only when the system entropy source does.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "-" + n, nil
}

// RunID identifies one pipeline run.
func RunID() (string, error) {
	return Generate("run")
}

// SessionID derives a stable session ID from its source order, so reruns over
// the same data produce the same IDs.
func SessionID(orderID string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(orderID)).String()
}

// Sequential returns prefix-NNNN, used for synthetic rows that need stable,
// sortable IDs.
func Sequential(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}
