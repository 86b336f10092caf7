// Package preferences stores per-partner display settings.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	"golang.org/x/text/language"

	"example.com/planner/internal/calendar"
)

// ErrInvalidPreference wraps validation failures.
var ErrInvalidPreference = errors.New("invalid preference")

// Preferences are the settings a partner chose in the app.
type Preferences struct {
	Theme           calendar.ThemeMode `json:"theme"`
	Language        string             `json:"language"`
	DefaultLeadTime int                `json:"default_lead_time"`
}

// Defaults returns the settings used before a partner saves any.
func Defaults() Preferences {
	return Preferences{
		Theme:           calendar.ThemeSystem,
		Language:        language.English.String(),
		DefaultLeadTime: calendar.DefaultLeadTime,
	}
}

// Validate normalizes p and rejects unsupported values.
func (p Preferences) Validate() (Preferences, error) {
	theme, err := calendar.ParseThemeMode(string(p.Theme))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPreference, err)
	}
	p.Theme = theme

	if p.Language == "" {
		p.Language = language.English.String()
	}
	tag, ok := calendar.SupportedLanguage(p.Language)
	if !ok {
		return p, fmt.Errorf("%w: unsupported language %q", ErrInvalidPreference, p.Language)
	}
	p.Language = tag.String()

	if !calendar.IsLeadTimeOption(p.DefaultLeadTime) {
		return p, fmt.Errorf("%w: lead time %d is not an option", ErrInvalidPreference, p.DefaultLeadTime)
	}
	return p, nil
}

// Store persists preferences.
type Store interface {
	Get(ctx context.Context, tenantID, userID string) (Preferences, error)
	Put(ctx context.Context, tenantID, userID string, p Preferences) (Preferences, error)
}

// RedisStore keeps each partner's preferences in a Redis hash.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func hashKey(tenantID, userID string) string {
	return "prefs:" + tenantID + ":" + userID
}

// Get returns stored preferences merged over Defaults.
func (s *RedisStore) Get(ctx context.Context, tenantID, userID string) (Preferences, error) {
	fields, err := s.client.HGetAll(ctx, hashKey(tenantID, userID)).Result()
	if err != nil {
		return Preferences{}, err
	}

	p := Defaults()
	if v, ok := fields["theme"]; ok {
		p.Theme = calendar.ThemeMode(v)
	}
	if v, ok := fields["language"]; ok {
		p.Language = v
	}
	if v, ok := fields["default_lead_time"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.DefaultLeadTime = n
		}
	}
	return p, nil
}

// Put validates and stores p.
func (s *RedisStore) Put(ctx context.Context, tenantID, userID string, p Preferences) (Preferences, error) {
	p, err := p.Validate()
	if err != nil {
		return p, err
	}
	err = s.client.HSet(ctx, hashKey(tenantID, userID),
		"theme", string(p.Theme),
		"language", p.Language,
		"default_lead_time", p.DefaultLeadTime,
	).Err()
	return p, err
}

// MemoryStore keeps preferences in process.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]Preferences)}
}

// Get returns stored preferences or Defaults.
func (s *MemoryStore) Get(_ context.Context, tenantID, userID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prefs[hashKey(tenantID, userID)]; ok {
		return p, nil
	}
	return Defaults(), nil
}

// Put validates and stores p.
func (s *MemoryStore) Put(_ context.Context, tenantID, userID string, p Preferences) (Preferences, error) {
	p, err := p.Validate()
	if err != nil {
		return p, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[hashKey(tenantID, userID)] = p
	return p, nil
}
