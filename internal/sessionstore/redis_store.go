package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "excursiondesk:session:"

type storedCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HttpOnly bool   `json:"http_only,omitempty"`
}

// RedisStore keeps session cookies between console runs, one key per
// operator profile.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: DefaultKeyPrefix + profile, ttl: ttl}
}

func (s *RedisStore) Key() string {
	return s.key
}

// Load returns no cookies and no error when nothing was saved.
func (s *RedisStore) Load(ctx context.Context) ([]*http.Cookie, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.key, err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.key, err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(c.Expires, 0).UTC()
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (s *RedisStore) Save(ctx context.Context, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if !c.Expires.IsZero() {
			sc.Expires = c.Expires.Unix()
		}
		stored = append(stored, sc)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding cookies: %w", err)
	}
	if err := s.client.Set(ctx, s.key, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", s.key, err)
	}
	return nil
}

// Clear forgets the saved session, e.g. on logout.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", s.key, err)
	}
	return nil
}
