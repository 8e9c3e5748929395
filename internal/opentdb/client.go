// Package opentdb is a client for the Open Trivia DB question API.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
)

const (
	DefaultBaseURL = "https://opentdb.com"
	defaultTimeout = 10 * time.Second

	typeMultiple = "multiple"
)

// Response codes documented by Open Trivia DB.
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
	codeRateLimit     = 5
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(c Config) (*Client, error) {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("opentdb: parse base url: %w", err)
	}

	hc := c.HTTPClient
	if hc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{base: base, http: hc}, nil
}

type response struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

// FetchQuestions requests one batch of multiple-choice questions.
// "No results" and "invalid parameter" responses are reported as CodeNotFound,
// transport failures and rate limiting as CodeUnavailable.
func (c *Client) FetchQuestions(ctx context.Context, req domain.FetchRequest) ([]domain.RawQuestion, error) {
	u := c.base.JoinPath("api.php")
	q := url.Values{}
	q.Set("amount", strconv.Itoa(req.Amount))
	q.Set("category", strconv.Itoa(req.CategoryID))
	q.Set("difficulty", string(req.Difficulty))
	q.Set("type", typeMultiple)
	u.RawQuery = q.Encode()

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("opentdb: build request: %w", err)
	}

	slog.DebugContext(ctx, "opentdb: fetching questions", "url", u.String())

	resp, err := c.http.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question source unreachable"),
			errors.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question source returned HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("question source returned HTTP %d", resp.StatusCode))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("decode question source response"),
			errors.WithCause(err))
	}

	switch body.ResponseCode {
	case codeSuccess:
		return body.Results, nil
	case codeNoResults, codeInvalidParam:
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no questions: category=%d difficulty=%s response_code=%d", req.CategoryID, req.Difficulty, body.ResponseCode))
	case codeRateLimit:
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question source rate limited"))
	case codeTokenNotFound, codeTokenEmpty:
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("question source session token error: response_code=%d", body.ResponseCode))
	default:
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("unexpected response_code=%d", body.ResponseCode))
	}
}
