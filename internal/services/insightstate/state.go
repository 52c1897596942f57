// Package insightstate remembers which insights a user dismissed, snoozed or
// found helpful. The insight engine is stateless; callers filter its output
// through Visible.
package insightstate

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"fininsight/internal/models"
	"fininsight/internal/services/storage"
)

// DefaultDismissal is how long a dismissed insight without its own expiry
// stays hidden
const DefaultDismissal = 30 * 24 * time.Hour

// Entry is the recorded state of one insight id for one user
type Entry struct {
	DismissedUntil *time.Time `json:"dismissed_until,omitempty"`
	SnoozedUntil   *time.Time `json:"snoozed_until,omitempty"`
	Helpful        *bool      `json:"helpful,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HiddenAt reports whether the insight is suppressed at now
func (e *Entry) HiddenAt(now time.Time) bool {
	if e.DismissedUntil != nil && now.Before(*e.DismissedUntil) {
		return true
	}
	return e.SnoozedUntil != nil && now.Before(*e.SnoozedUntil)
}

// Store keeps per-user insight state in a JSON file written through storage,
// so it is encrypted along with the rest of the data directory. While the
// storage is locked the file is not read; the first call after Unlock loads it.
type Store struct {
	mu     sync.Mutex
	path   string
	files  *storage.Storage
	users  map[string]map[string]*Entry
	loaded bool
	cron   *cron.Cron
	log    zerolog.Logger
}

// Open loads state from path; a missing file starts empty. A locked storage
// is not an error: loading is retried on first use.
func Open(files *storage.Storage, path string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		path:  path,
		files: files,
		users: make(map[string]map[string]*Entry),
		log:   log.With().Str("component", "insightstate").Logger(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		if !errors.Is(err, storage.ErrLocked) {
			return nil, err
		}
		s.log.Debug().Msg("storage locked, insight state loads after unlock")
	}
	return s, nil
}

// load reads the state file once. mu must be held.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	users := make(map[string]map[string]*Entry)
	err := s.files.ReadJSON(s.path, &users)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load insight state: %w", err)
	}
	if users == nil {
		users = make(map[string]map[string]*Entry)
	}
	s.users = users
	s.loaded = true
	return nil
}

// Dismiss hides an insight until its own expiry, or for DefaultDismissal when
// it never expires
func (s *Store) Dismiss(userID string, in models.Insight, now time.Time) error {
	until := now.Add(DefaultDismissal)
	if in.ExpiresAt != nil {
		until = *in.ExpiresAt
	}
	return s.update(userID, in.ID, now, func(e *Entry) {
		e.DismissedUntil = &until
	})
}

// Snooze hides an insight for the given number of days
func (s *Store) Snooze(userID, insightID string, days int, now time.Time) error {
	if days <= 0 {
		return fmt.Errorf("snooze days must be positive, got %d", days)
	}
	until := now.AddDate(0, 0, days)
	return s.update(userID, insightID, now, func(e *Entry) {
		e.SnoozedUntil = &until
	})
}

// MarkHelpful records user feedback on an insight
func (s *Store) MarkHelpful(userID, insightID string, helpful bool, now time.Time) error {
	return s.update(userID, insightID, now, func(e *Entry) {
		e.Helpful = &helpful
	})
}

func (s *Store) update(userID, insightID string, now time.Time, apply func(*Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	entries, ok := s.users[userID]
	if !ok {
		entries = make(map[string]*Entry)
		s.users[userID] = entries
	}
	e, ok := entries[insightID]
	if !ok {
		e = &Entry{}
		entries[insightID] = e
	}
	apply(e)
	e.UpdatedAt = now

	return s.save()
}

// Get returns a copy of the entry for an insight, if any
func (s *Store) Get(userID, insightID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return Entry{}, false
	}

	e, ok := s.users[userID][insightID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Visible drops insights the user has dismissed or snoozed. Order is kept.
// When the state cannot be read yet everything is visible.
func (s *Store) Visible(userID string, insights []models.Insight, now time.Time) []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		s.log.Warn().Err(err).Msg("insight state unavailable")
		return insights
	}

	entries := s.users[userID]
	visible := make([]models.Insight, 0, len(insights))
	for _, in := range insights {
		if e, ok := entries[in.ID]; ok && e.HiddenAt(now) {
			continue
		}
		visible = append(visible, in)
	}
	return visible
}

// Prune forgets entries that no longer hide anything and carry no feedback.
// It returns the number of entries removed.
func (s *Store) Prune(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for userID, entries := range s.users {
		for id, e := range entries {
			if e.HiddenAt(now) || e.Helpful != nil {
				continue
			}
			delete(entries, id)
			removed++
		}
		if len(entries) == 0 {
			delete(s.users, userID)
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, s.save()
}

// StartPruning runs Prune on a cron schedule (e.g. "@hourly") until Stop
func (s *Store) StartPruning(schedule string, clock func() time.Time) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.Prune(clock())
		if err != nil {
			s.log.Error().Err(err).Msg("prune insight state")
			return
		}
		if n > 0 {
			s.log.Debug().Int("removed", n).Msg("pruned insight state")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	return nil
}

// Stop halts scheduled pruning and waits for a running job to finish
func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// save must be called with mu held
func (s *Store) save() error {
	if err := s.files.WriteJSON(s.path, s.users); err != nil {
		return fmt.Errorf("save insight state: %w", err)
	}
	return nil
}
