package birthday

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry is one stored birthday. The JSON layout is the one the list file
// has always used.
type Entry struct {
	UserID   string `json:"userId"`
	Mention  string `json:"mention"`
	Birthday string `json:"birthday"`
	Month    string `json:"month"`
}

// Date parses the stored birthday
func (e Entry) Date() (Date, error) {
	return ParseDate(e.Birthday)
}

// Upcoming is an entry with its countdown
type Upcoming struct {
	Entry
	Birth Date
	Days  int
}

// Store is the birthday list file
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens the list at path, creating parent directories
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create birthday directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the list file location
func (s *Store) Path() string {
	return s.path
}

// withLock runs fn while holding both the process mutex and an exclusive
// flock on a sidecar lock file.
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lf, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lf.Close()

	if err := lockFile(lf); err != nil {
		return fmt.Errorf("failed to lock birthday file: %w", err)
	}
	defer unlockFile(lf)

	return fn()
}

func (s *Store) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read birthday file: %w", err)
	}
	if len(data) == 0 {
		return []Entry{}, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse birthday file: %w", err)
	}
	return entries, nil
}

// write replaces the file atomically: temp file, fsync, rename
func (s *Store) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal birthdays: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".birthdays-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write birthdays: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync birthdays: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close birthdays: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace birthday file: %w", err)
	}
	return nil
}

// Upsert stores the birthday of entry.UserID, replacing any earlier one.
// It reports whether an entry already existed.
func (s *Store) Upsert(entry Entry) (updated bool, err error) {
	err = s.withLock(func() error {
		entries, err := s.read()
		if err != nil {
			return err
		}
		for i := range entries {
			if entries[i].UserID == entry.UserID {
				entries[i] = entry
				updated = true
				break
			}
		}
		if !updated {
			entries = append(entries, entry)
		}
		return s.write(entries)
	})
	if err == nil {
		log.Info().Str("component", "birthday").Str("user", entry.UserID).Bool("updated", updated).Msg("birthday saved")
	}
	return updated, err
}

// List returns every stored entry in file order
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.withLock(func() error {
		var err error
		entries, err = s.read()
		return err
	})
	return entries, err
}

// Upcoming returns all entries sorted by days until their next birthday.
// Entries whose date no longer parses are skipped and logged.
func (s *Store) Upcoming(today time.Time) ([]Upcoming, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}

	out := make([]Upcoming, 0, len(entries))
	for _, e := range entries {
		d, err := e.Date()
		if err != nil {
			log.Warn().Err(err).Str("component", "birthday").Str("user", e.UserID).Msg("skipping unreadable birthday")
			continue
		}
		out = append(out, Upcoming{Entry: e, Birth: d, Days: d.DaysUntil(today)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Days != out[j].Days {
			return out[i].Days < out[j].Days
		}
		return out[i].Mention < out[j].Mention
	})
	return out, nil
}
