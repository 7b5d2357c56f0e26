package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
	"github.com/gemcommunity/blog/backend/internal/services"
	"github.com/gemcommunity/blog/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostRepo struct {
	posts map[string]*models.Post
}

func (f *fakePostRepo) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	return post, nil
}

func (f *fakePostRepo) CreatePost(ctx context.Context, post *models.Post) error { return nil }
func (f *fakePostRepo) GetPostsByAuthorID(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	return nil, nil
}
func (f *fakePostRepo) UpdatePost(ctx context.Context, id string, post *models.Post) error {
	return nil
}
func (f *fakePostRepo) DeletePost(ctx context.Context, id string) error               { return nil }
func (f *fakePostRepo) IncrementLikesCount(ctx context.Context, postID string) error  { return nil }
func (f *fakePostRepo) DecrementLikesCount(ctx context.Context, postID string) error  { return nil }
func (f *fakePostRepo) IncrementCommentsCount(ctx context.Context, postID string) error {
	return nil
}
func (f *fakePostRepo) DecrementCommentsCount(ctx context.Context, postID string) error {
	return nil
}

type fakeSubscriptionRepo struct {
	subs []models.PushSubscription
}

func (f *fakeSubscriptionRepo) UpsertSubscription(sub *models.PushSubscription) error {
	for i := range f.subs {
		if f.subs[i].UserID == sub.UserID && f.subs[i].Endpoint == sub.Endpoint {
			f.subs[i].P256dh = sub.P256dh
			f.subs[i].Auth = sub.Auth
			return nil
		}
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeSubscriptionRepo) DeleteSubscription(userID uint, endpoint string) error {
	kept := f.subs[:0]
	for _, s := range f.subs {
		if s.UserID != userID || s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	f.subs = kept
	return nil
}

func (f *fakeSubscriptionRepo) DeleteByEndpoint(endpoint string) error {
	kept := f.subs[:0]
	for _, s := range f.subs {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	f.subs = kept
	return nil
}

func (f *fakeSubscriptionRepo) HasSubscription(userID uint, endpoint string) (bool, error) {
	for _, s := range f.subs {
		if s.UserID == userID && s.Endpoint == endpoint {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubscriptionRepo) GetByUserID(userID uint) ([]models.PushSubscription, error) {
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeSender struct {
	sent int
}

func (f *fakeSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	f.sent++
	return http.StatusCreated, nil
}

func newPushHandlerFixture(posts *fakePostRepo, subs *fakeSubscriptionRepo, sender *fakeSender, webhookToken string) (*echo.Echo, *PushHandler) {
	e := echo.New()
	e.Validator = validators.NewValidator()
	pusher := services.NewPusher(posts, subs, sender)
	h := NewPushHandler(subs, pusher, "test-public-key", webhookToken)
	return e, h
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uint) echo.Context {
	c := e.NewContext(req, rec)
	c.Set("user", &models.JwtCustomClaims{UserID: userID})
	return c
}

func TestHandleCommentWebhook_MissingRecordIsPayloadError(t *testing.T) {
	e, h := newPushHandlerFixture(&fakePostRepo{}, &fakeSubscriptionRepo{}, &fakeSender{}, "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/comment-created", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.HandleCommentWebhook(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Payload error"}`, rec.Body.String())
}

func TestHandleCommentWebhook_UnknownPostIs404(t *testing.T) {
	e, h := newPushHandlerFixture(&fakePostRepo{posts: map[string]*models.Post{}}, &fakeSubscriptionRepo{}, &fakeSender{}, "")

	body := `{"record":{"post_id":"missing","content":"hi","user_id":2}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/comment-created", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.HandleCommentWebhook(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, rec.Body.String())
}

func TestHandleCommentWebhook_NoSubscriptionsIsStillOK(t *testing.T) {
	posts := &fakePostRepo{posts: map[string]*models.Post{
		"p1": {AuthorID: 1, Title: "First post"},
	}}
	e, h := newPushHandlerFixture(posts, &fakeSubscriptionRepo{}, &fakeSender{}, "")

	body := `{"record":{"post_id":"p1","content":"hi","user_id":2}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/comment-created", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.HandleCommentWebhook(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"No subscriptions found for user"}`, rec.Body.String())
}

func TestHandleCommentWebhook_DeliversToAuthorDevices(t *testing.T) {
	posts := &fakePostRepo{posts: map[string]*models.Post{
		"p1": {AuthorID: 1, Title: "First post"},
	}}
	subs := &fakeSubscriptionRepo{subs: []models.PushSubscription{
		{UserID: 1, Endpoint: "https://push.example/a"},
		{UserID: 1, Endpoint: "https://push.example/b"},
		{UserID: 9, Endpoint: "https://push.example/other"},
	}}
	sender := &fakeSender{}
	e, h := newPushHandlerFixture(posts, subs, sender, "")

	body := `{"record":{"post_id":"p1","content":"hello","user_id":2}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/comment-created", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.HandleCommentWebhook(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, sender.sent)

	var resp struct {
		Message string                `json:"message"`
		Result  services.FanOutResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Sent notifications", resp.Message)
	assert.Equal(t, 2, resp.Result.Subscriptions)
	assert.Equal(t, 2, resp.Result.Delivered)
	assert.Zero(t, resp.Result.Failed)
}

func TestHandleCommentWebhook_RejectsBadToken(t *testing.T) {
	e, h := newPushHandlerFixture(&fakePostRepo{}, &fakeSubscriptionRepo{}, &fakeSender{}, "secret")

	body := `{"record":{"post_id":"p1","content":"hi","user_id":2}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/comment-created", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Webhook-Token", "wrong")
	rec := httptest.NewRecorder()

	err := h.HandleCommentWebhook(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestSubscribeThenStatusAndUnsubscribe(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	e, h := newPushHandlerFixture(&fakePostRepo{}, subs, &fakeSender{}, "")

	body := `{"endpoint":"https://push.example/device1","keys":{"p256dh":"pk","auth":"ak"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/push/subscriptions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Subscribe(authedContext(e, req, rec, 1)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, subs.subs, 1)
	assert.Equal(t, uint(1), subs.subs[0].UserID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/push/subscriptions/status?endpoint=https://push.example/device1", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, h.GetStatus(authedContext(e, req, rec, 1)))
	assert.JSONEq(t, `{"subscribed":true}`, rec.Body.String())

	// Another user asking about the same endpoint is not subscribed.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/push/subscriptions/status?endpoint=https://push.example/device1", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, h.GetStatus(authedContext(e, req, rec, 2)))
	assert.JSONEq(t, `{"subscribed":false}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/push/subscriptions", strings.NewReader(`{"endpoint":"https://push.example/device1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	require.NoError(t, h.Unsubscribe(authedContext(e, req, rec, 1)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, subs.subs)
}

func TestSubscribe_InvalidPayloadIsRejected(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	e, h := newPushHandlerFixture(&fakePostRepo{}, subs, &fakeSender{}, "")

	// Missing keys object fails validation.
	body := `{"endpoint":"https://push.example/device1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/push/subscriptions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.Subscribe(authedContext(e, req, rec, 1))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Empty(t, subs.subs)
}

func TestSubscribe_RequiresAuthentication(t *testing.T) {
	e, h := newPushHandlerFixture(&fakePostRepo{}, &fakeSubscriptionRepo{}, &fakeSender{}, "")

	body := `{"endpoint":"https://push.example/device1","keys":{"p256dh":"pk","auth":"ak"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/push/subscriptions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.Subscribe(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetPublicKey(t *testing.T) {
	e, h := newPushHandlerFixture(&fakePostRepo{}, &fakeSubscriptionRepo{}, &fakeSender{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/push/public-key", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.GetPublicKey(e.NewContext(req, rec)))
	assert.JSONEq(t, `{"publicKey":"test-public-key"}`, rec.Body.String())

	unconfigured := NewPushHandler(&fakeSubscriptionRepo{}, nil, "", "")
	rec = httptest.NewRecorder()
	err := unconfigured.GetPublicKey(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}
