package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoriesCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out, &bytes.Buffer{})
	cmd.SetArgs([]string{"categories"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "  9  General Knowledge")
	assert.Contains(t, out.String(), " 15  Video Games")
}

func TestPlayCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("category"))
		assert.Equal(t, "hard", r.URL.Query().Get("difficulty"))
		_, _ = w.Write([]byte(`{"response_code":0,"results":[{"question":"2 &gt; 1?","correct_answer":"Yes","incorrect_answers":["No"]}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf("trivia:\n  baseurl: %s\n", srv.URL)), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader("X\n"), &out, &bytes.Buffer{})
	cmd.SetArgs([]string{"play", "--config", cfg, "--name", "Ann", "--category", "12", "--difficulty", "hard"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Question 1/1: 2 > 1?")
	assert.Contains(t, out.String(), "Invalid input. Please enter a letter A-B.")
}

func TestPlayCmd_InvalidDifficulty(t *testing.T) {
	cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"play", "--difficulty", "extreme"})

	assert.Error(t, cmd.Execute())
}
