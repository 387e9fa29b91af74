package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

func newServer(t *testing.T, status int, body string, check func(r *http.Request, payload map[string]any)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var payload map[string]any
		assert.NoError(t, json.Unmarshal(raw, &payload))
		if check != nil {
			check(r, payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestGetAll(t *testing.T) {
	c := newServer(t, http.StatusOK,
		`{"cardLikes":{"cards/mew.png":{"count":3,"userLiked":true},"cards/eevee.png":{"count":1,"userLiked":false}},"userLikeCount":1}`,
		func(r *http.Request, payload map[string]any) {
			assert.Equal(t, "/api/likes/getAll", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "s1", payload["sessionId"])
		})

	res, err := c.GetAll(context.TODO(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.CardLikes{
		CardLikes: map[string]domain.CardLikeSummary{
			"cards/mew.png":   {Count: 3, UserLiked: true},
			"cards/eevee.png": {Count: 1},
		},
		UserLikeCount: 1,
	}, res)
}

func TestUpdate(t *testing.T) {
	c := newServer(t, http.StatusOK, `{"success":true,"newCount":5}`,
		func(r *http.Request, payload map[string]any) {
			assert.Equal(t, "/api/likes/update", r.URL.Path)
			assert.Equal(t, map[string]any{
				"cardPath":  "cards/mew.png",
				"sessionId": "s1",
				"action":    "unlike",
			}, payload)
		})

	n, err := c.Update(context.TODO(), domain.CardLike{SessionID: "s1", CardPath: "cards/mew.png"}, domain.Unlike)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestUpdateErrorKinds(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"validation", http.StatusBadRequest, `{"success":false,"message":"bad action"}`, KindValidation, "bad action"},
		{"rate limit", http.StatusTooManyRequests, `{"success":false,"message":"daily like limit reached"}`, KindRateLimit, "daily like limit reached"},
		{"storage", http.StatusInternalServerError, `{"success":false,"message":"internal Server Error"}`, KindStorage, "internal Server Error"},
		{"bad gateway", http.StatusBadGateway, `upstream down`, KindStorage, "upstream down"},
		{"unsuccessful", http.StatusOK, `{"success":false,"newCount":0}`, KindStorage, "unsuccessful update"},
		{"malformed", http.StatusOK, `{"success":`, KindNetwork, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newServer(t, tc.status, tc.body, nil)
			_, err := c.Update(context.TODO(), domain.CardLike{SessionID: "s1", CardPath: "cards/mew.png"}, domain.Like)
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.kind, KindOf(err))
			if tc.message != "" {
				assert.Equal(t, tc.message, apiErr.Message)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).GetAll(context.TODO(), "s1")
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL).WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond})
	_, err := c.Update(context.TODO(), domain.CardLike{SessionID: "s1", CardPath: "cards/mew.png"}, domain.Like)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}
