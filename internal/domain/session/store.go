// internal/domain/session/store.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/pos-backend/internal/config"
	"gorm.io/gorm"
)

// Store provides durable CRUD for session records. Save rewrites the
// relational rows and the serialized snapshot together; no other code path
// writes either.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id uint) (*Session, error)
	ActiveByOwner(ctx context.Context, userID, deviceID uint) ([]Session, error)
	CountActiveByOwner(ctx context.Context, userID, deviceID uint) (int64, error)
	TabNameInUse(ctx context.Context, userID, deviceID uint, tabName string) (bool, error)
	Save(ctx context.Context, sess *Session) error
	StaleSessions(ctx context.Context, before time.Time) ([]Session, error)
}

// openStates are the non-terminal states counted against the concurrency cap
var openStates = []State{StateActive, StateSuspended}

// GormStore is the PostgreSQL-backed Store. It optionally mirrors the
// snapshot into Redis for fast reload; the relational rows stay
// authoritative.
type GormStore struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewStore creates a new session store
func NewStore(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *GormStore {
	return &GormStore{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// Create persists a new session together with its derived snapshot
func (s *GormStore) Create(ctx context.Context, sess *Session) error {
	snapshot, err := sess.BuildSnapshot()
	if err != nil {
		return &PersistenceError{Op: "create", Err: err}
	}
	sess.SnapshotJSON = snapshot

	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return &PersistenceError{Op: "create", Err: err}
	}

	s.cacheSnapshot(ctx, sess)
	return nil
}

// Get loads a session with its items
func (s *GormStore) Get(ctx context.Context, id uint) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).Preload("Items").First(&sess, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return &sess, nil
}

// ActiveByOwner lists the non-terminal sessions of a (user, device) pair
func (s *GormStore) ActiveByOwner(ctx context.Context, userID, deviceID uint) ([]Session, error) {
	var sessions []Session
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND device_id = ? AND state IN ?", userID, deviceID, openStates).
		Order("last_activity_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return sessions, nil
}

// CountActiveByOwner counts the non-terminal sessions of a (user, device)
// pair. Callers serialize the count-then-insert sequence per owner key.
func (s *GormStore) CountActiveByOwner(ctx context.Context, userID, deviceID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND device_id = ? AND state IN ?", userID, deviceID, openStates).
		Count(&count).Error
	if err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return count, nil
}

// TabNameInUse reports whether a non-terminated session with the tab name
// already exists for the (user, device) pair
func (s *GormStore) TabNameInUse(ctx context.Context, userID, deviceID uint, tabName string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND device_id = ? AND tab_name = ? AND state IN ?",
			userID, deviceID, tabName, openStates).
		Count(&count).Error
	if err != nil {
		return false, &PersistenceError{Op: "tab name check", Err: err}
	}
	return count > 0, nil
}

// Save writes the session row, its item rows and the re-derived snapshot in
// a single transaction. Partial writes are not permitted: on failure the
// session keeps its last committed state.
func (s *GormStore) Save(ctx context.Context, sess *Session) error {
	snapshot, err := sess.BuildSnapshot()
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	sess.SnapshotJSON = snapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range sess.Items {
			sess.Items[i].SessionID = sess.ID
			if err := tx.Save(&sess.Items[i]).Error; err != nil {
				return fmt.Errorf("failed to save line item: %w", err)
			}
		}
		if err := tx.Omit("Items").Save(sess).Error; err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	s.cacheSnapshot(ctx, sess)
	return nil
}

// StaleSessions lists the non-terminal sessions whose last activity predates
// the threshold, for the expiry sweep
func (s *GormStore) StaleSessions(ctx context.Context, before time.Time) ([]Session, error) {
	var sessions []Session
	err := s.db.WithContext(ctx).
		Where("state IN ? AND last_activity_at < ?", openStates, before).
		Find(&sessions).Error
	if err != nil {
		return nil, &PersistenceError{Op: "stale scan", Err: err}
	}
	return sessions, nil
}

// CachedSnapshot returns the Redis-mirrored snapshot for fast reload, or ""
// when absent. Callers fall back to the relational rows.
func (s *GormStore) CachedSnapshot(ctx context.Context, id uint) string {
	if s.redisClient == nil {
		return ""
	}
	data, err := s.redisClient.Get(ctx, snapshotKey(id)).Result()
	if err != nil {
		return ""
	}
	return data
}

// cacheSnapshot mirrors the snapshot into Redis, best effort
func (s *GormStore) cacheSnapshot(ctx context.Context, sess *Session) {
	if s.redisClient == nil {
		return
	}
	s.redisClient.Set(ctx, snapshotKey(sess.ID), sess.SnapshotJSON, s.config.Session.SnapshotCacheTTL)
}

func snapshotKey(id uint) string {
	return fmt.Sprintf("session:snapshot:%d", id)
}
