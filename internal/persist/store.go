// Package persist stores the canonical session record on disk so a hub
// restart resumes with the last shared document.
package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tileboard/schema"
)

// SessionRecord is the persisted canonical state. LastUpdatedBy is the
// participant id of the last writer, or null when nobody has written yet.
type SessionRecord struct {
	Code          string                `json:"code"`
	SavedAt       time.Time             `json:"savedAt"`
	LastUpdatedBy *schema.ParticipantID `json:"lastUpdatedBy"`
}

// Store persists the session record to a single file. Writes are atomic:
// a temp file in the same directory is renamed over the target.
type Store struct {
	path string
	log  pslog.Logger
}

// NewStore constructs a store writing to path.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("session file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("session_file", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the session record. A missing file is not an error; ok is
// false and the zero record is returned.
func (s *Store) Load() (SessionRecord, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("session load miss")
			}
			return SessionRecord{}, false, nil
		}
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return SessionRecord{}, false, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return SessionRecord{}, false, err
	}
	if s.log != nil {
		s.log.Debug("session load ok", "saved_at", rec.SavedAt, "bytes", len(rec.Code))
	}
	return rec, true, nil
}

// Save writes the session record to disk.
func (s *Store) Save(rec SessionRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "session-*.json")
	if err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("session save ok", "bytes", len(rec.Code))
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		if s.log != nil {
			s.log.Warn("session clear failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("session cleared")
	}
	return nil
}
