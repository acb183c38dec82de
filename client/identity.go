package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"pkt.systems/tileboard/schema"
)

var (
	identityBucket = []byte("identity")
	studentIDKey   = []byte("studentId")
)

// IdentityStore keeps the hub-assigned student id across restarts so a
// returning student gets the same name back.
type IdentityStore struct {
	db *bolt.DB
}

// OpenIdentityStore opens or creates the identity database.
func OpenIdentityStore(path string) (*IdentityStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(identityBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init identity store: %w", err)
	}
	return &IdentityStore{db: db}, nil
}

// Close releases the database file.
func (s *IdentityStore) Close() error {
	return s.db.Close()
}

// StudentID returns the stored id, or 0 when none was stored yet.
func (s *IdentityStore) StudentID() (schema.ParticipantID, error) {
	var id schema.ParticipantID
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(identityBucket).Get(studentIDKey)
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("corrupt student id %q: %w", raw, err)
		}
		id = schema.ParticipantID(n)
		return nil
	})
	return id, err
}

// SetStudentID stores the hub-assigned id.
func (s *IdentityStore) SetStudentID(id schema.ParticipantID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(identityBucket).Put(studentIDKey, []byte(strconv.Itoa(int(id))))
	})
}

// Forget drops the stored id.
func (s *IdentityStore) Forget() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(identityBucket).Delete(studentIDKey)
	})
}
