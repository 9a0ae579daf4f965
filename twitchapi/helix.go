// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for user id resolution and channel title lookups, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const helixBaseURL = "https://api.twitch.tv/helix"

// helixMaxRetries bounds attempts per request. A 401 answered by a token
// refresh earns one extra attempt.
const helixMaxRetries = 3

// helixRetryDelay is the base backoff between retries; overridden in tests.
var helixRetryDelay = 500 * time.Millisecond

// maxRetryAfter caps how long a 429 Retry-After header can stall a caller.
const maxRetryAfter = 30 * time.Second

// HelixClient provides minimal methods needed for topic polling.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
}

// ChannelInfo is the subset of /helix/channels the topic poller reads.
type ChannelInfo struct {
	BroadcasterID    string `json:"broadcaster_id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	Title            string `json:"title"`
	GameName         string `json:"game_name"`
}

// StatusError is returned for non-retryable Helix responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("helix: status %d: %s", e.Code, e.Body)
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// get issues a GET against path and decodes the JSON body into out. 5xx and
// 429 responses are retried with backoff; a 401 invalidates the app token and
// retries once with a fresh one.
func (hc *HelixClient) get(ctx context.Context, path string, q url.Values, out any) error {
	maxAttempts := helixMaxRetries
	refreshed := false
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tok, err := hc.AppTokenSource.Get(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, helixBaseURL+path, nil)
		if err != nil {
			return err
		}
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Client-Id", hc.ClientID)
		req.Header.Set("Authorization", "Bearer "+tok)

		resp, err := hc.http().Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return err
			}
			continue
		}
		status := resp.StatusCode
		if status == http.StatusOK {
			err := json.NewDecoder(resp.Body).Decode(out)
			closeBody(resp)
			return err
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryAfter := resp.Header.Get("Retry-After")
		closeBody(resp)
		lastErr = &StatusError{Code: status, Body: string(body)}

		var wait time.Duration
		switch {
		case status == http.StatusUnauthorized && !refreshed:
			hc.AppTokenSource.Invalidate(tok)
			refreshed = true
			maxAttempts++
			slog.Info("helix token rejected, refreshing", slog.String("path", path), slog.String("component", "twitchapi"))
			continue
		case status == http.StatusTooManyRequests:
			wait = parseRetryAfter(retryAfter, backoff(attempt))
		case status >= 500:
			wait = backoff(attempt)
		default:
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		slog.Warn("helix request retry", slog.String("path", path), slog.Int("status", status), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.String("component", "twitchapi"))
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("helix %s: retries exhausted: %w", path, lastErr)
}

func backoff(attempt int) time.Duration {
	return helixRetryDelay * time.Duration(1<<(attempt-1))
}

func parseRetryAfter(v string, fallback time.Duration) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return fallback
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	q := url.Values{}
	q.Set("login", login)
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", q, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// ErrChannelNotFound is returned when Helix knows no channel for the id.
var ErrChannelNotFound = errors.New("channel not found")

// GetChannelInfo returns the current title and category of a broadcaster.
func (hc *HelixClient) GetChannelInfo(ctx context.Context, broadcasterID string) (ChannelInfo, error) {
	if broadcasterID == "" {
		return ChannelInfo{}, fmt.Errorf("broadcasterID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	var body struct {
		Data []ChannelInfo `json:"data"`
	}
	if err := hc.get(ctx, "/channels", q, &body); err != nil {
		return ChannelInfo{}, err
	}
	if len(body.Data) == 0 {
		return ChannelInfo{}, ErrChannelNotFound
	}
	return body.Data[0], nil
}
