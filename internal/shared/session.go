package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore issues signed bearer tokens backed by Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	secret []byte
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, secret string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl, secret: []byte(secret)}
}

// Issue creates a token for userID.
func (s *SessionStore) Issue(ctx context.Context, userID int64) (string, error) {
	if s == nil || s.client == nil {
		return "", errNotInitialised
	}
	id := uuid.NewString()
	if err := s.client.Set(ctx, s.redisKey(id), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", err
	}
	return id + "." + s.sign(id), nil
}

// Resolve returns the user behind token and slides its expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errNotInitialised
	}
	id, ok := s.verify(token)
	if !ok {
		return 0, ErrSessionNotFound
	}
	raw, err := s.client.Get(ctx, s.redisKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrSessionNotFound
	}
	_ = s.client.Expire(ctx, s.redisKey(id), s.ttl).Err()
	return userID, nil
}

// Revoke deletes token. Unknown tokens are ignored.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if s == nil || s.client == nil {
		return errNotInitialised
	}
	id, ok := s.verify(token)
	if !ok {
		return nil
	}
	if err := s.client.Del(ctx, s.redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *SessionStore) verify(token string) (string, bool) {
	id, sig, found := strings.Cut(token, ".")
	if !found || id == "" {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, hmac.Equal([]byte(sig), []byte(s.sign(id)))
}

func (s *SessionStore) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *SessionStore) redisKey(id string) string {
	return "session:" + id
}
