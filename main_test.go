package main

import (
	"comments/domain"
	"comments/pkg/config"
	"comments/pkg/events"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memoryRepository struct {
	mu       sync.Mutex
	comments []domain.Comment
	err      error
	pingErr  error
}

func (r *memoryRepository) Close(ctx context.Context) error { return nil }

func (r *memoryRepository) Ping(ctx context.Context) error { return r.pingErr }

func (r *memoryRepository) FindComments(ctx context.Context, filter domain.CommentFilter) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	out := make([]domain.Comment, 0)
	for _, c := range r.comments {
		if v, ok := filter[domain.CommentFieldItemID]; ok && c.ItemID != v {
			continue
		}
		if v, ok := filter[domain.CommentFieldUserID]; ok && c.UserID != v {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepository) DeleteCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return domain.Comment{}, r.err
	}

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return domain.Comment{}, domain.ErrInvalidCommentID
	}

	for i, c := range r.comments {
		if c.ID == oid {
			r.comments = append(r.comments[:i:i], r.comments[i+1:]...)
			return c, nil
		}
	}
	return domain.Comment{}, domain.ErrCommentNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	down   bool
}

func (p *recordingPublisher) IsHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.down
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange string, event *events.Event, headers events.Headers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func seededRepository() *memoryRepository {
	return &memoryRepository{comments: []domain.Comment{
		{ID: bson.NewObjectID(), ItemID: "item-1", UserID: "user-1", Body: "first"},
		{ID: bson.NewObjectID(), ItemID: "item-1", UserID: "user-2", Body: "second"},
		{ID: bson.NewObjectID(), ItemID: "item-2", UserID: "user-1", Body: "third"},
	}}
}

func newTestApp(repo *memoryRepository, publisher events.Publisher) *fiber.App {
	cfg := &config.AppConfig{ServiceName: "comments"}
	return newApp(cfg, repo, publisher, prometheus.NewRegistry())
}

func doRequest(t *testing.T, server *fiber.App, method, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := server.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestListComments(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "no filter", query: "", want: []string{"first", "second", "third"}},
		{name: "by item", query: "?itemId=item-1", want: []string{"first", "second"}},
		{name: "by user", query: "?userId=user-1", want: []string{"first", "third"}},
		{name: "by item and user", query: "?itemId=item-1&userId=user-2", want: []string{"second"}},
		{name: "empty values are ignored", query: "?itemId=&userId=", want: []string{"first", "second", "third"}},
		{name: "no match", query: "?itemId=item-9", want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestApp(seededRepository(), nil)

			resp, body := doRequest(t, server, http.MethodGet, "/api/comments/"+tc.query)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(strings.TrimSpace(string(body)), "["), "body must be a JSON array: %s", body)

			var comments []domain.Comment
			require.NoError(t, json.Unmarshal(body, &comments))

			got := make([]string, 0, len(comments))
			for _, c := range comments {
				got = append(got, c.Body)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListCommentsForwardsRepositoryError(t *testing.T) {
	repo := seededRepository()
	repo.err = errors.New("no reachable servers")
	server := newTestApp(repo, nil)

	resp, body := doRequest(t, server, http.MethodGet, "/api/comments/?itemId=item-1")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "internal_server_error", payload["code"])
}

func TestDeleteComment(t *testing.T) {
	repo := seededRepository()
	target := repo.comments[0]
	publisher := &recordingPublisher{}
	server := newTestApp(repo, publisher)

	resp, body := doRequest(t, server, http.MethodDelete, "/api/comments/"+target.ID.Hex())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Message string         `json:"message"`
		Comment domain.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Comment deleted successfully", payload.Message)
	assert.Equal(t, target.ID, payload.Comment.ID)
	assert.Equal(t, target.Body, payload.Comment.Body)

	assert.Len(t, repo.comments, 2)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.CommentDeletedEvent, publisher.events[0].Name)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
	assert.Equal(t, resp.Header.Get("X-Trace-Id"), publisher.events[0].TraceID)
}

func TestDeleteMissingComment(t *testing.T) {
	repo := seededRepository()
	publisher := &recordingPublisher{}
	server := newTestApp(repo, publisher)

	resp, body := doRequest(t, server, http.MethodDelete, "/api/comments/"+bson.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Comment not found", payload["message"])
	assert.Len(t, repo.comments, 3)
	assert.Empty(t, publisher.events)
}

func TestDeleteMissingCommentIsNotLoggedAsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	server := newTestApp(seededRepository(), nil)

	resp, _ := doRequest(t, server, http.MethodDelete, "/api/comments/"+bson.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestPanickingRequestIsCounted(t *testing.T) {
	registry := prometheus.NewRegistry()
	server := newApp(&config.AppConfig{ServiceName: "comments"}, seededRepository(), nil, registry)
	server.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, _ := doRequest(t, server, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	families, err := registry.Gather()
	require.NoError(t, err)

	var counted bool
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}
			if labels["route"] == "/boom" && labels["status"] == "500" {
				counted = metric.GetCounter().GetValue() == 1
			}
		}
	}
	assert.True(t, counted, "panicking request must be counted with status 500")
}

func TestDeleteCommentErrors(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		repo := seededRepository()
		server := newTestApp(repo, nil)

		resp, body := doRequest(t, server, http.MethodDelete, "/api/comments/not-an-id")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "request.invalid_id", payload["code"])
		assert.Len(t, repo.comments, 3)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := seededRepository()
		repo.err = errors.New("connection reset by peer")
		server := newTestApp(repo, nil)

		resp, body := doRequest(t, server, http.MethodDelete, "/api/comments/"+bson.NewObjectID().Hex())
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "internal_server_error", payload["code"])
	})
}

func TestHealthEndpoints(t *testing.T) {
	repo := seededRepository()
	server := newTestApp(repo, nil)

	resp, _ := doRequest(t, server, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, server, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	repo.pingErr = errors.New("down")
	resp, body := doRequest(t, server, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "health.not_ready")
}

func TestReadinessFollowsPublisherHealth(t *testing.T) {
	publisher := &recordingPublisher{}
	server := newTestApp(seededRepository(), publisher)

	resp, _ := doRequest(t, server, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	publisher.mu.Lock()
	publisher.down = true
	publisher.mu.Unlock()

	resp, body := doRequest(t, server, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "Event publisher unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestApp(seededRepository(), nil)

	doRequest(t, server, http.MethodGet, "/api/comments/")

	resp, body := doRequest(t, server, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestUnknownRouteUsesErrorWriter(t *testing.T) {
	server := newTestApp(seededRepository(), nil)

	resp, body := doRequest(t, server, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "request.invalid", payload["code"])
}
