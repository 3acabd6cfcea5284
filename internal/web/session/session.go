// Package session keeps the login sessions of the admin api in a fiber storage backend.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// ErrNoSession is returned by Read for unknown or expired session ids.
var ErrNoSession = errors.New("no session")

// Data represents the session data structure.
type Data struct {
	UserID   string
	TenantID *string // context the user logged in to, nil for central
	Created  time.Time
}

// Store reads and writes session data.
type Store struct {
	storage fiber.Storage
	expiry  time.Duration
}

// New creates a session store on top of storage. A nil storage keeps sessions in memory.
func New(storage fiber.Storage, expiry time.Duration) *Store {
	// fiber's session store falls back to its in-memory storage
	fs := session.New(session.Config{Storage: storage, Expiration: expiry})

	return &Store{
		storage: fs.Storage,
		expiry:  expiry,
	}
}

// Expiry returns the session lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Write writes the session data for the given session ID.
func (s *Store) Write(sessionID string, data *Data) error {
	out, err := json.Marshal(data)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return s.storage.Set(sessionID, out, s.expiry) //nolint:wrapcheck
}

// Read reads the session data for the given session ID.
func (s *Store) Read(sessionID string) (*Data, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	byteData, err := s.storage.Get(sessionID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if len(byteData) == 0 {
		return nil, ErrNoSession
	}

	data := new(Data)
	if err = json.Unmarshal(byteData, data); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return data, nil
}

// Delete removes a session.
func (s *Store) Delete(sessionID string) error {
	return s.storage.Delete(sessionID) //nolint:wrapcheck
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err //nolint:wrapcheck
	}

	return hex.EncodeToString(b), nil
}
