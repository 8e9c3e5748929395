package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/etrivia/internal/config"
)

type sample struct {
	HTTP struct {
		Port int32
	}

	Trivia struct {
		BaseURL string
		Amount  int
		Timeout time.Duration
	}

	Redis struct {
		Addrs []string
	}
}

func defaults() sample {
	var s sample
	s.HTTP.Port = 8080
	s.Trivia.BaseURL = "https://opentdb.com"
	s.Trivia.Amount = 5
	s.Trivia.Timeout = 10 * time.Second
	return s
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		arrange func(t *testing.T) string
		assert  func(t *testing.T, got sample, err error)
	}{
		"no file keeps defaults": {
			arrange: func(*testing.T) string { return "" },
			assert: func(t *testing.T, got sample, err error) {
				require.NoError(t, err)
				assert.Equal(t, defaults(), got)
			},
		},

		"file overrides only the keys it sets": {
			arrange: func(t *testing.T) string {
				return writeFile(t, "trivia:\n  amount: 10\n  timeout: 3s\nredis:\n  addrs: [\"localhost:6379\"]\n")
			},
			assert: func(t *testing.T, got sample, err error) {
				require.NoError(t, err)
				assert.Equal(t, 10, got.Trivia.Amount)
				assert.Equal(t, 3*time.Second, got.Trivia.Timeout)
				assert.Equal(t, "https://opentdb.com", got.Trivia.BaseURL)
				assert.Equal(t, []string{"localhost:6379"}, got.Redis.Addrs)
				assert.Equal(t, int32(8080), got.HTTP.Port)
			},
		},

		"missing file is an error": {
			arrange: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			assert: func(t *testing.T, _ sample, err error) {
				assert.Error(t, err)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := defaults()
			err := config.Load(tt.arrange(t), &got)
			tt.assert(t, got, err)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TRIVIA_AMOUNT", "7")
	t.Setenv("HTTP_PORT", "9090")

	got := defaults()
	require.NoError(t, config.Load(writeFile(t, "trivia:\n  amount: 10\n"), &got))

	assert.Equal(t, 7, got.Trivia.Amount)
	assert.Equal(t, int32(9090), got.HTTP.Port)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}
