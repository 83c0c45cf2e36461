package category

import (
	"maps"
	"slices"
	"strings"
)

// Canonical categories.
const (
	Beauty      = "Beauty"
	Electronics = "Electronics"
	Health      = "Health"
	Home        = "Home"
	Kitchen     = "Kitchen"
	Gaming      = "Gaming"
	Fashion     = "Fashion"
	Travel      = "Travel"
	Crafts      = "Crafts"
	Pets        = "Pets"
	Sports      = "Sports"
	Music       = "Music"
	Books       = "Books"
	Art         = "Art"
	Finance     = "Finance"
	Toys        = "Toys"
	Auto        = "Auto"
	Office      = "Office"
	Garden      = "Garden"
	Food        = "Food"
	Baby        = "Baby"
	Other       = "Other"
)

// Canonical returns the full canonical set in declaration order, Other last.
func Canonical() []string {
	return []string{
		Beauty, Electronics, Health, Home, Kitchen, Gaming, Fashion, Travel,
		Crafts, Pets, Sports, Music, Books, Art, Finance, Toys, Auto, Office,
		Garden, Food, Baby, Other,
	}
}

// Fallbacks returns the categories used to fill gaps when no data supplies one.
func Fallbacks() []string {
	return []string{Beauty, Electronics, Health, Home, Kitchen, Gaming, Fashion, Travel, Crafts, Pets}
}

// IsCanonical reports whether name is exactly a canonical category.
func IsCanonical(name string) bool {
	return slices.Contains(Canonical(), name)
}

// Mapper resolves raw source labels to canonical categories. A translation
// table (source label -> English label) takes precedence over the built-in
// aliases.
type Mapper struct {
	translations map[string]string
	bySlug       map[string]string
}

// NewMapper builds a Mapper. translations may be nil.
func NewMapper(translations map[string]string) *Mapper {
	m := &Mapper{
		translations: make(map[string]string, len(translations)),
		bySlug:       make(map[string]string, len(Aliases)+len(Canonical())),
	}

	for k, v := range translations {
		m.translations[Slugify(k)] = v
	}

	maps.Copy(m.bySlug, Aliases)
	for _, c := range Canonical() {
		m.bySlug[Slugify(c)] = c
	}
	return m
}

// Translations returns the number of translation entries.
func (m *Mapper) Translations() int {
	return len(m.translations)
}

// Resolve maps raw to a canonical category. It never returns a value outside
// Canonical(); unknown and empty labels resolve to Other.
func (m *Mapper) Resolve(raw string) string {
	slug := Slugify(raw)
	if slug == "" {
		return Other
	}

	if translated, ok := m.translations[slug]; ok {
		if c, ok := m.lookup(Slugify(translated)); ok {
			return c
		}
	}

	if c, ok := m.lookup(slug); ok {
		return c
	}
	return Other
}

// lookup tries the slug itself, then its leading token ("fashion-shoes" ->
// "fashion").
func (m *Mapper) lookup(slug string) (string, bool) {
	if c, ok := m.bySlug[slug]; ok {
		return c, true
	}
	if head, _, found := strings.Cut(slug, "-"); found {
		if c, ok := m.bySlug[head]; ok {
			return c, true
		}
	}
	return "", false
}
