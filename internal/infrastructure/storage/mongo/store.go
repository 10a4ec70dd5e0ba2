// Package mongo provides the MongoDB docstore backend on top of mgo.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/mgo/v3"

	"invoicedesk/internal/core/docstore"
)

// Config holds connection settings.
type Config struct {
	URL      string
	Database string
	// Timeout bounds dialing and every socket operation.
	Timeout time.Duration
}

// Store implements docstore.Store over one mgo session. Every operation runs on
// a copy of the root session, the way mgo expects concurrent callers to work.
type Store struct {
	root     *mgo.Session
	database string
}

var _ docstore.Store = (*Store)(nil)

// Dial connects to MongoDB and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	session, err := mgo.DialWithTimeout(cfg.URL, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial mongo: %w", err)
	}
	session.SetMode(mgo.Strong, true)
	session.SetSocketTimeout(timeout)

	if err := session.Ping(); err != nil {
		session.Close()
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{root: session, database: cfg.Database}, nil
}

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &Collection{store: s, name: name}
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session := s.root.Copy()
	defer session.Close()
	return session.Ping()
}

// Close implements docstore.Store.
func (s *Store) Close() {
	s.root.Close()
}

// with runs fn against the named collection on a fresh session copy.
func (s *Store) with(ctx context.Context, name string, fn func(c *mgo.Collection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session := s.root.Copy()
	defer session.Close()
	return fn(session.DB(s.database).C(name))
}
