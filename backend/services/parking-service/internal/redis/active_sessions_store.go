package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parkpay/backend/services/parking-service/internal/models"
)

// ErrMiss is returned when a session is not cached.
var ErrMiss = errors.New("redisstore: cache miss")

// minTTL keeps entries for sessions that are about to end readable for a short while.
const minTTL = time.Minute

// ActiveSession is the cached view of a running session.
type ActiveSession struct {
	SessionID        int64                `json:"session_id"`
	UserID           int64                `json:"user_id"`
	ZoneID           int64                `json:"zone_id"`
	VehicleID        int64                `json:"vehicle_id"`
	Status           models.SessionStatus `json:"status"`
	ScheduledEndTime time.Time            `json:"scheduled_end_time"`
}

// FromSession builds the cached view of s.
func FromSession(s *models.Session) ActiveSession {
	return ActiveSession{
		SessionID:        s.ID,
		UserID:           s.UserID,
		ZoneID:           s.ZoneID,
		VehicleID:        s.VehicleID,
		Status:           s.Status,
		ScheduledEndTime: s.ScheduledEndTime,
	}
}

// Store caches running sessions and remembers which expiry warnings were sent.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore returns redis-backed store. Keys are namespaced under prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "parkpay"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) activeKey(sessionID int64) string {
	return fmt.Sprintf("%s:sessions:active:%d", s.prefix, sessionID)
}

func (s *Store) warnedKey(sessionID int64, end time.Time) string {
	return fmt.Sprintf("%s:sessions:warned:%d:%d", s.prefix, sessionID, end.Unix())
}

func ttlUntil(end, now time.Time) time.Duration {
	ttl := end.Sub(now)
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}

// Save caches the session until its scheduled end.
func (s *Store) Save(ctx context.Context, session ActiveSession, now time.Time) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.activeKey(session.SessionID), data, ttlUntil(session.ScheduledEndTime, now)).Err()
}

// Get returns cached session or ErrMiss.
func (s *Store) Get(ctx context.Context, sessionID int64) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.activeKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes cached session.
func (s *Store) Delete(ctx context.Context, sessionID int64) error {
	return s.client.Del(ctx, s.activeKey(sessionID)).Err()
}

// MarkWarned records that the expiry warning for the session's current end time went out.
// It returns false when the warning was already recorded. Extending a session changes its
// end time and therefore allows a new warning.
func (s *Store) MarkWarned(ctx context.Context, sessionID int64, end, now time.Time) (bool, error) {
	return s.client.SetNX(ctx, s.warnedKey(sessionID, end), now.Unix(), ttlUntil(end, now)+time.Hour).Result()
}
