package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/pkg/errors"
)

type stubService struct {
	subscribeFn   func(ctx context.Context, req *model.SubscribeRequest, ip string) (*model.Subscriber, error)
	confirmFn     func(ctx context.Context, token string) (*model.Subscriber, error)
	unsubscribeFn func(ctx context.Context, token string) (*model.Subscriber, error)
}

func (s *stubService) Subscribe(ctx context.Context, req *model.SubscribeRequest, ip string) (*model.Subscriber, error) {
	return s.subscribeFn(ctx, req, ip)
}

func (s *stubService) Confirm(ctx context.Context, token string) (*model.Subscriber, error) {
	return s.confirmFn(ctx, token)
}

func (s *stubService) Unsubscribe(ctx context.Context, token string) (*model.Subscriber, error) {
	return s.unsubscribeFn(ctx, token)
}

func (s *stubService) Get(ctx context.Context, id uuid.UUID) (*model.Subscriber, error) {
	return nil, nil
}
func (s *stubService) Update(ctx context.Context, sub *model.Subscriber) error { return nil }
func (s *stubService) Delete(ctx context.Context, id uuid.UUID) error          { return nil }
func (s *stubService) List(ctx context.Context, filters *model.SubscriberFilters) ([]*model.Subscriber, int, error) {
	return nil, 0, nil
}
func (s *stubService) MarkBounced(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubService) Stats(ctx context.Context) (map[string]int, error)   { return nil, nil }
func (s *stubService) ExportCSV(ctx context.Context, filters *model.SubscriberFilters, w io.Writer) error {
	return nil
}
func (s *stubService) ImportCSV(ctx context.Context, r io.Reader) (*model.ImportResult, error) {
	return nil, nil
}

func setupRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(svc)
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestSubscribeEndpoint(t *testing.T) {
	svc := &stubService{
		subscribeFn: func(ctx context.Context, req *model.SubscribeRequest, ip string) (*model.Subscriber, error) {
			return &model.Subscriber{
				Email:  req.Email,
				Status: model.SubscriberStatusPending,
			}, nil
		},
	}
	engine := setupRouter(svc)

	body, _ := json.Marshal(map[string]interface{}{
		"email":   "reader@example.com",
		"consent": true,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter/subscribe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pending")
}

func TestSubscribeEndpointRejectsBadBody(t *testing.T) {
	engine := setupRouter(&stubService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter/subscribe", bytes.NewReader([]byte(`{"email":"nope"}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribeEndpointConflict(t *testing.T) {
	svc := &stubService{
		subscribeFn: func(ctx context.Context, req *model.SubscribeRequest, ip string) (*model.Subscriber, error) {
			return nil, errors.Conflict("email is already subscribed", nil)
		},
	}
	engine := setupRouter(svc)

	body, _ := json.Marshal(map[string]interface{}{"email": "reader@example.com", "consent": true})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletter/subscribe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirmEndpoint(t *testing.T) {
	now := time.Now()
	svc := &stubService{
		confirmFn: func(ctx context.Context, token string) (*model.Subscriber, error) {
			require.Equal(t, "tok-1", token)
			return &model.Subscriber{
				Email:       "reader@example.com",
				Status:      model.SubscriberStatusActive,
				ConfirmedAt: &now,
			}, nil
		},
	}
	engine := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/newsletter/confirm/tok-1", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "active")
}

func TestConfirmEndpointUnknownToken(t *testing.T) {
	svc := &stubService{
		confirmFn: func(ctx context.Context, token string) (*model.Subscriber, error) {
			return nil, errors.NotFound("invalid or expired token", nil)
		},
	}
	engine := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/newsletter/confirm/bogus", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnsubscribeEndpointAcceptsGetAndPost(t *testing.T) {
	svc := &stubService{
		unsubscribeFn: func(ctx context.Context, token string) (*model.Subscriber, error) {
			return &model.Subscriber{
				Email:  "reader@example.com",
				Status: model.SubscriberStatusUnsubscribed,
			}, nil
		},
	}
	engine := setupRouter(svc)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/api/v1/newsletter/unsubscribe/tok-2", nil)
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, method)
		assert.Contains(t, w.Body.String(), "unsubscribed")
	}
}
