package preferences

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"example.com/planner/internal/calendar"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"redis":  NewRedisStore(client),
		"memory": NewMemoryStore(),
	}
}

func TestStoreReturnsDefaultsWhenUnset(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := store.Get(context.Background(), "t1", "alex")
			require.NoError(t, err)
			require.Equal(t, Defaults(), p)
		})
	}
}

func TestStorePutNormalizesAndPersists(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saved, err := store.Put(ctx, "t1", "alex", Preferences{Theme: "Dark", Language: "es-MX", DefaultLeadTime: 60})
			require.NoError(t, err)
			require.Equal(t, calendar.ThemeDark, saved.Theme)
			require.Equal(t, "es", saved.Language)

			got, err := store.Get(ctx, "t1", "alex")
			require.NoError(t, err)
			require.Equal(t, saved, got)

			partner, err := store.Get(ctx, "t1", "sam")
			require.NoError(t, err)
			require.Equal(t, Defaults(), partner)
		})
	}
}

func TestStorePutRejectsInvalid(t *testing.T) {
	cases := map[string]Preferences{
		"theme":     {Theme: "sepia", Language: "en", DefaultLeadTime: 30},
		"language":  {Theme: "light", Language: "ja", DefaultLeadTime: 30},
		"lead time": {Theme: "light", Language: "en", DefaultLeadTime: 45},
	}
	for name, store := range stores(t) {
		for field, p := range cases {
			t.Run(name+"/"+field, func(t *testing.T) {
				_, err := store.Put(context.Background(), "t1", "alex", p)
				require.ErrorIs(t, err, ErrInvalidPreference)
			})
		}
	}
}

func TestRedisStoreLayout(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisStore(client).Put(context.Background(), "t1", "alex",
		Preferences{Theme: calendar.ThemeLight, Language: "th", DefaultLeadTime: 1440})
	require.NoError(t, err)

	require.Equal(t, "light", s.HGet("prefs:t1:alex", "theme"))
	require.Equal(t, "th", s.HGet("prefs:t1:alex", "language"))
	require.Equal(t, "1440", s.HGet("prefs:t1:alex", "default_lead_time"))
}
