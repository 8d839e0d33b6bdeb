package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session binds a bearer token to an authenticated user.
type Session struct {
	Token    string    `json:"-"`
	UserID   int64     `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// SessionStore keeps bearer-token sessions in Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Issue creates a session for the user and returns it with a fresh token.
func (s *SessionStore) Issue(ctx context.Context, userID int64) (Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: id.String(), UserID: userID, IssuedAt: time.Now().UTC()}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.client.Set(ctx, s.redisKey(sess.Token), data, s.ttl).Err(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Lookup resolves a token into its session.
func (s *SessionStore) Lookup(ctx context.Context, token string) (Session, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Session{}, ErrMalformedToken
	}
	payload, err := s.client.Get(ctx, s.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, err
	}
	sess.Token = token
	return sess, nil
}

// Revoke deletes the session. Unknown tokens are ignored.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) redisKey(token string) string {
	return "session:" + token
}
