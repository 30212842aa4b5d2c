package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

const maxStateBytes = 8 << 20

// Envelope is the write body sent to the relay. The relay answers reads with
// the same shape minus the credentials.
type Envelope struct {
	Room  string          `json:"room,omitempty"`
	Token string          `json:"token,omitempty"`
	State json.RawMessage `json:"state"`
}

// Client talks to the relay endpoint of one room.
type Client struct {
	endpoint string
	room     string
	token    string
	http     *http.Client
}

// NewClient returns a client for cfg. A nil hc uses http.DefaultClient.
func NewClient(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		room:     strings.TrimSpace(cfg.Room),
		token:    strings.TrimSpace(cfg.Token),
		http:     hc,
	}
}

// Fetch reads the remote document. It returns nil without error when the room
// holds no document or one without a known version tag.
func (c *Client) Fetch(ctx context.Context) (*model.Document, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	q := u.Query()
	q.Set("room", c.room)
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: "fetch", Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStateBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return nil, nil
	}
	doc, _, err := model.Decode(env.State)
	switch {
	case errors.Is(err, model.ErrVersionMismatch):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return doc, nil
}

// Store overwrites the remote document. The body goes out as text/plain so a
// browser relay client needs no preflight.
func (c *Client) Store(ctx context.Context, doc *model.Document) error {
	state, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	body, err := json.Marshal(Envelope{Room: c.room, Token: c.token, State: state})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStateBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: "store", Code: resp.StatusCode}
	}
	return nil
}
