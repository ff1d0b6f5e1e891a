package search

import (
	"context"
	"unicode/utf8"

	"media-catalog/internal/database"
	"media-catalog/internal/tags"
)

const (
	// DefaultAutocompleteLimit is the number of variants returned by default.
	DefaultAutocompleteLimit = 10

	// MaxAutocompleteLimit caps the number of variants.
	MaxAutocompleteLimit = 100
)

// Autocompleter completes tag prefixes from known tags counters.
type Autocompleter struct {
	store Store
}

// NewAutocompleter returns an Autocompleter reading from store.
func NewAutocompleter(store Store) *Autocompleter {
	return &Autocompleter{store: store}
}

// Autocomplete returns up to limit tags from the caller's scope that start
// with prefix and are still in use, most used first. A casefolded prefix
// shorter than minimalLength yields an empty result without a query.
func (a *Autocompleter) Autocomplete(ctx context.Context, user *database.User, prefix string, minimalLength, limit int) ([]string, error) {
	folded := tags.Casefold(prefix)
	if utf8.RuneCountInString(folded) < minimalLength {
		return []string{}, nil
	}

	switch {
	case limit <= 0:
		limit = DefaultAutocompleteLimit
	case limit > MaxAutocompleteLimit:
		limit = MaxAutocompleteLimit
	}

	return a.store.AutocompleteTags(ctx, user.Scope(), folded, limit)
}
