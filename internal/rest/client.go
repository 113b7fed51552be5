// Package rest is the backend REST client used by the reconciler and the
// journey flow. Every call carries the session's bearer credential and
// maps failures onto the sync error taxonomy.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"flyte-sync/internal/models"
	"flyte-sync/internal/observability"
)

var (
	// ErrNetwork signals an unreachable or failing backend; the store is
	// left untouched and the caller decides whether to retry.
	ErrNetwork = errors.New("network failure")
	// ErrParse signals a malformed backend payload.
	ErrParse = errors.New("parse failure")
	// ErrUnauthorized signals a missing or expired credential; surfaced
	// to the UI to force re-authentication, never retried automatically.
	ErrUnauthorized = errors.New("unauthorized")
)

// TokenSource yields the current bearer credential. Only the session
// bootstrap writes the credential; consumers read it through this.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the Flyte backend.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

// NewClient builds a Client for the given base URL. token may be nil for
// unauthenticated use (e.g. before first login).
func NewClient(baseURL string, timeout time.Duration, token TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

// RoomsAndMessages fetches the full snapshot of the user's rooms with
// their message history.
func (c *Client) RoomsAndMessages(ctx context.Context, userID string) ([]models.RoomWithMessages, error) {
	var snapshot []models.RoomWithMessages
	query := url.Values{"userId": {userID}}
	if err := c.doJSON(ctx, http.MethodGet, "/rooms-and-messages", query, nil, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RoomMessages fetches one room's message history.
func (c *Client) RoomMessages(ctx context.Context, roomID string) ([]models.APIMessage, error) {
	var msgs []models.APIMessage
	if err := c.doJSON(ctx, http.MethodGet, "/messages/room/"+url.PathEscape(roomID), nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateJourney creates a journey upstream and returns its three rooms.
func (c *Client) CreateJourney(ctx context.Context, req models.JourneyRequest) (models.JourneyResponse, error) {
	var resp models.JourneyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/journeys", nil, req, &resp); err != nil {
		return models.JourneyResponse{}, err
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	ctx, span := otel.Tracer("flyte-sync/rest").Start(ctx, "rest "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token, err := c.token(ctx); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveRESTRequest(method, path, 0, time.Since(start))
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	observability.ObserveRESTRequest(method, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}
