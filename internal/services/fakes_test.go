package services

import (
	"context"
	"sync"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
)

// fakeNotificationRepo is an in-memory NotificationRepository
type fakeNotificationRepo struct {
	mu        sync.Mutex
	rows      []models.Notification
	nextID    uint
	createErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	n.ID = f.nextID
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotificationRepo) CreateUnlessUnreadDuplicate(n *models.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	for _, row := range f.rows {
		if row.RecipientID == n.RecipientID && row.ActorID == n.ActorID &&
			row.Type == n.Type && row.PostID == n.PostID && !row.IsRead {
			return false, nil
		}
	}
	f.nextID++
	n.ID = f.nextID
	f.rows = append(f.rows, *n)
	return true, nil
}

func (f *fakeNotificationRepo) GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, row := range f.rows {
		if row.RecipientID == recipientID {
			out = append(out, row)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationRepo) GetUnreadCount(recipientID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, row := range f.rows {
		if row.RecipientID == recipientID && !row.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkAsRead(notificationID, recipientID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == notificationID && f.rows[i].RecipientID == recipientID {
			f.rows[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(recipientID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].RecipientID == recipientID {
			f.rows[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteNotification(notificationID, recipientID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == notificationID && f.rows[i].RecipientID == recipientID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeNotificationRepo) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, len(f.rows))
	copy(out, f.rows)
	return out
}

// fakePostRepo is an in-memory PostRepository keyed by post ID string
type fakePostRepo struct {
	posts map[string]*models.Post
}

func newFakePostRepo(posts map[string]*models.Post) *fakePostRepo {
	if posts == nil {
		posts = make(map[string]*models.Post)
	}
	return &fakePostRepo{posts: posts}
}

func (f *fakePostRepo) CreatePost(ctx context.Context, post *models.Post) error { return nil }

func (f *fakePostRepo) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	return post, nil
}

func (f *fakePostRepo) GetPostsByAuthorID(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) UpdatePost(ctx context.Context, id string, post *models.Post) error {
	return nil
}

func (f *fakePostRepo) DeletePost(ctx context.Context, id string) error { return nil }

func (f *fakePostRepo) IncrementLikesCount(ctx context.Context, postID string) error { return nil }

func (f *fakePostRepo) DecrementLikesCount(ctx context.Context, postID string) error { return nil }

func (f *fakePostRepo) IncrementCommentsCount(ctx context.Context, postID string) error { return nil }

func (f *fakePostRepo) DecrementCommentsCount(ctx context.Context, postID string) error { return nil }

// fakeSubscriptionRepo is an in-memory PushSubscriptionRepository
type fakeSubscriptionRepo struct {
	mu      sync.Mutex
	subs    []models.PushSubscription
	listErr error
}

func newFakeSubscriptionRepo(subs ...models.PushSubscription) *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: subs}
}

func (f *fakeSubscriptionRepo) UpsertSubscription(sub *models.PushSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].UserID == sub.UserID && f.subs[i].Endpoint == sub.Endpoint {
			f.subs[i] = *sub
			return nil
		}
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeSubscriptionRepo) DeleteSubscription(userID uint, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].UserID == userID && f.subs[i].Endpoint == endpoint {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) DeleteByEndpoint(endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.UserID == userID && s.Endpoint == endpoint {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubscriptionRepo) GetByUserID(userID uint) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// sendResult scripts one endpoint's behavior in fakeSender
type sendResult struct {
	status int
	err    error
}

// fakeSender records deliveries and answers per scripted endpoints
type fakeSender struct {
	mu       sync.Mutex
	results  map[string]sendResult // keyed by endpoint; missing = success
	payloads map[string][]byte
}

func newFakeSender(results map[string]sendResult) *fakeSender {
	if results == nil {
		results = make(map[string]sendResult)
	}
	return &fakeSender{results: results, payloads: make(map[string][]byte)}
}

func (f *fakeSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[sub.Endpoint] = payload
	if res, ok := f.results[sub.Endpoint]; ok {
		return res.status, res.err
	}
	return 201, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSender) payloadFor(endpoint string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[endpoint]
}
