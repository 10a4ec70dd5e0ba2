// Package idempotency stores the outcome of mutating requests keyed by the
// client's idempotency key, so retries replay the first response instead of
// running the operation again.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/core/docstore"
)

// CollectionName is where idempotency records are kept.
const CollectionName = "idempotency_keys"

// DefaultTTL is how long a completed key is replayed.
const DefaultTTL = 24 * time.Hour

// staleAfter is how long a pending key may stay unfinished before another
// request is allowed to take it over.
const staleAfter = time.Minute

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Record stores the result of an idempotent operation.
type Record struct {
	Key         string    `json:"_id"`
	UserID      string    `json:"user_id"`
	Operation   string    `json:"operation"`
	Status      Status    `json:"status"`
	RequestHash string    `json:"request_hash"`
	Response    []byte    `json:"response,omitempty"`
	StatusCode  int       `json:"response_status,omitempty"`
	ContentType string    `json:"response_content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Replay is the cached HTTP response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store struct {
	coll docstore.Collection
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a new idempotency store.
func NewStore(coll docstore.Collection, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{coll: coll, ttl: ttl, now: time.Now}
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if key acquired successfully
//   - (replay, nil) if operation already completed (success or failed)
//   - (nil, error) if key is locked by another request or reused for a different one
func (s *Store) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error) {
	now := s.now().UTC()
	fresh := Record{
		Key:         key,
		UserID:      userID,
		Operation:   operation,
		Status:      StatusPending,
		RequestHash: requestHash,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	acquired, err := s.insert(ctx, fresh)
	if err != nil || acquired {
		return nil, err
	}

	record, err := s.get(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		// Deleted between insert and read; try once more.
		acquired, err = s.insert(ctx, fresh)
		if err != nil {
			return nil, err
		}
		if acquired {
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
	if err != nil {
		return nil, err
	}

	if now.After(record.ExpiresAt) {
		if _, err := s.coll.DeleteOne(ctx, docstore.Filter{docstore.IDField: key}); err != nil {
			return nil, fmt.Errorf("drop expired idempotency key: %w", err)
		}
		if acquired, err = s.insert(ctx, fresh); err != nil {
			return nil, err
		}
		if acquired {
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}

	// Key exists: protect against reuse for a different request.
	if record.UserID != userID || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case StatusSuccess, StatusFailed:
		return &Replay{
			StatusCode:  normalizeReplayStatus(record.StatusCode),
			ContentType: normalizeReplayContentType(record.ContentType),
			Body:        record.Response,
		}, nil

	case StatusPending:
		if now.Sub(record.UpdatedAt) > staleAfter {
			matched, err := s.coll.UpdateOne(ctx,
				docstore.Filter{docstore.IDField: key, "status": string(StatusPending), "updated_at": record.UpdatedAt.Format(time.RFC3339Nano)},
				map[string]any{"updated_at": now.Format(time.RFC3339Nano)},
			)
			if err != nil {
				return nil, fmt.Errorf("reclaim stale idempotency key: %w", err)
			}
			if matched > 0 {
				return nil, nil
			}
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}

	return nil, nil
}

// CompleteKey marks an idempotency key as completed with HTTP response.
func (s *Store) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.finish(ctx, key, StatusSuccess, statusCode, contentType, body)
}

// FailKey marks an idempotency key as failed with HTTP response.
func (s *Store) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return s.finish(ctx, key, StatusFailed, statusCode, contentType, body)
}

// Release forgets a pending key so the client may retry with it.
func (s *Store) Release(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, docstore.Filter{docstore.IDField: key, "status": string(StatusPending)})
	return err
}

func (s *Store) finish(ctx context.Context, key string, status Status, statusCode int, contentType string, body []byte) error {
	set, err := docstore.Encode(struct {
		Status      Status    `json:"status"`
		Response    []byte    `json:"response"`
		StatusCode  int       `json:"response_status"`
		ContentType string    `json:"response_content_type"`
		UpdatedAt   time.Time `json:"updated_at"`
	}{status, body, statusCode, contentType, s.now().UTC()})
	if err != nil {
		return err
	}
	if _, err := s.coll.UpdateOne(ctx, docstore.Filter{docstore.IDField: key}, set); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, record Record) (bool, error) {
	doc, err := docstore.Encode(record)
	if err != nil {
		return false, err
	}
	_, err = s.coll.InsertOne(ctx, doc)
	if errors.Is(err, docstore.ErrDuplicateKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire idempotency key: %w", err)
	}
	return true, nil
}

func (s *Store) get(ctx context.Context, key string) (Record, error) {
	var record Record
	doc, err := s.coll.FindOne(ctx, docstore.Filter{docstore.IDField: key})
	if err != nil {
		return record, err
	}
	if err := docstore.Decode(doc, &record); err != nil {
		return record, err
	}
	return record, nil
}

func normalizeReplayStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

func normalizeReplayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
