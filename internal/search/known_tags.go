package search

import (
	"context"
	"time"

	"github.com/google/uuid"

	"media-catalog/internal/database"
)

// AnonKnownTags returns the tags visible to anonymous callers with the
// number of items carrying each. Unused tags are left out.
func (s *Service) AnonKnownTags(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	counters, err := s.knownTags(ctx, database.AnonScope())
	observe("known_tags", database.Anon(), start, len(counters), err)
	return counters, err
}

// KnownTags returns the known tags of the user identified by target. Only
// that user may read them: anyone else gets ErrAccessDenied. An unknown
// target is ErrNotFound regardless of the caller.
func (s *Service) KnownTags(ctx context.Context, caller *database.User, target uuid.UUID) (map[string]int, error) {
	start := time.Now()

	owner, err := s.db.Conn().GetUserByUUID(ctx, target)
	if err != nil {
		observe("known_tags", caller, start, 0, err)
		return nil, err
	}
	if caller.IsAnon() || caller.ID != owner.ID {
		log.Warn("%s denied known tags of user %d", caller.Scope(), owner.ID)
		observe("known_tags", caller, start, 0, database.ErrAccessDenied)
		return nil, database.ErrAccessDenied
	}

	counters, err := s.knownTags(ctx, database.UserScope(owner.ID))
	observe("known_tags", caller, start, len(counters), err)
	return counters, err
}

func (s *Service) knownTags(ctx context.Context, scope database.Scope) (map[string]int, error) {
	stored, err := s.db.Conn().GetKnownTags(ctx, scope)
	if err != nil {
		return nil, err
	}

	counters := make(map[string]int, len(stored))
	for tag, counter := range stored {
		if counter > 0 {
			counters[tag] = counter
		}
	}
	return counters, nil
}
