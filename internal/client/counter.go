// Package client is the typed HTTP client of the like counter API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/rest/request"
	"github.com/Guyuepp/card-gallery-likes/internal/rest/response"
)

const (
	defaultTimeout = 8 * time.Second
	maxErrorBody   = 4 << 10
)

// Kind classifies a failed call so callers can decide between revert and degrade.
type Kind int

const (
	KindNetwork    Kind = iota // transport failure or unreadable response
	KindValidation             // 400
	KindRateLimit              // 429
	KindStorage                // 5xx or any other unsuccessful answer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindRateLimit:
		return "rate_limit"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by Client.
type Error struct {
	Kind    Kind
	Status  int // 0 for network failures
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("likes api: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("likes api: %s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindNetwork when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}

// Client issues like calls against the counter service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// GetAll fetches the like state of every card for sessionID.
func (c *Client) GetAll(ctx context.Context, sessionID string) (domain.CardLikes, error) {
	var payload response.CardLikes
	if err := c.post(ctx, "getAll", request.GetAll{SessionID: sessionID}, &payload); err != nil {
		return domain.CardLikes{}, err
	}

	res := domain.CardLikes{
		CardLikes:     make(map[string]domain.CardLikeSummary, len(payload.CardLikes)),
		UserLikeCount: max(payload.UserLikeCount, 0),
	}
	for path, l := range payload.CardLikes {
		res.CardLikes[path] = domain.CardLikeSummary{Count: max(l.Count, 0), UserLiked: l.UserLiked}
	}
	return res, nil
}

// Update applies action for like and returns the authoritative count of the card.
func (c *Client) Update(ctx context.Context, like domain.CardLike, action domain.LikeAction) (int64, error) {
	body := request.Update{
		CardPath:  like.CardPath,
		SessionID: like.SessionID,
		Action:    action.String(),
	}
	var payload response.Update
	if err := c.post(ctx, "update", body, &payload); err != nil {
		return 0, err
	}
	if !payload.Success {
		return 0, &Error{Kind: KindStorage, Status: http.StatusOK, Message: "unsuccessful update"}
	}
	return max(payload.NewCount, 0), nil
}

func (c *Client) post(ctx context.Context, op string, in, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, "api", "likes", op)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: drainError(resp.Body),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindStorage
	}
}

// drainError prefers the message field of the error body.
func drainError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
