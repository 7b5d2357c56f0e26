package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
)

const (
	pushIconURL    = "/pwa-192x192.png"
	bodyPreviewMax = 30 // runes of comment content shown in the push body
)

// CommentEvent is the fan-out trigger payload: a new comment landed on a post
type CommentEvent struct {
	PostID      string `json:"post_id"`
	Content     string `json:"content"`
	CommenterID uint   `json:"user_id"`
}

// PushPayload is the JSON delivered to the device's background push handler
type PushPayload struct {
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Icon  string          `json:"icon"`
	Data  PushPayloadData `json:"data"`
}

// PushPayloadData carries the deep link opened on notification click
type PushPayloadData struct {
	URL string `json:"url"`
}

// WebPushSender delivers one payload to one device subscription and reports
// the push service's status code when a response was received.
type WebPushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (statusCode int, err error)
}

type vapidSender struct {
	publicKey  string
	privateKey string
	subject    string
}

// NewVAPIDSender creates a WebPushSender authenticated with the application's
// VAPID key pair.
func NewVAPIDSender(publicKey, privateKey, subject string) WebPushSender {
	return &vapidSender{publicKey: publicKey, privateKey: privateKey, subject: subject}
}

func (s *vapidSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// FanOutResult summarizes one fan-out run
type FanOutResult struct {
	Subscriptions int `json:"subscriptions"`
	Delivered     int `json:"delivered"`
	Failed        int `json:"failed"`
	Pruned        int `json:"pruned"`
}

// Pusher resolves a comment event to the post author's device subscriptions
// and delivers one push per device.
type Pusher struct {
	posts         repositories.PostRepository
	subscriptions repositories.PushSubscriptionRepository
	sender        WebPushSender
}

// NewPusher creates a new Pusher
func NewPusher(postRepo repositories.PostRepository, subscriptionRepo repositories.PushSubscriptionRepository, sender WebPushSender) *Pusher {
	return &Pusher{posts: postRepo, subscriptions: subscriptionRepo, sender: sender}
}

// FanOut looks up the post's author, loads every device subscription the
// author registered, and sends the push payload to each concurrently. One
// dead endpoint never aborts delivery to the others; endpoints the push
// service reports permanently gone (404/410) are pruned from storage.
// An author with zero subscriptions is a success with zero deliveries.
func (p *Pusher) FanOut(ctx context.Context, ev CommentEvent) (FanOutResult, error) {
	post, err := p.posts.GetPostByID(ctx, ev.PostID)
	if err != nil {
		return FanOutResult{}, err
	}

	subs, err := p.subscriptions.GetByUserID(post.AuthorID)
	if err != nil {
		return FanOutResult{}, fmt.Errorf("loading subscriptions for user %d: %w", post.AuthorID, err)
	}

	result := FanOutResult{Subscriptions: len(subs)}
	if len(subs) == 0 {
		return result, nil
	}

	payload, err := json.Marshal(PushPayload{
		Title: "New comment on your post",
		Body:  fmt.Sprintf("%q: %s", post.Title, truncateRunes(ev.Content, bodyPreviewMax)),
		Icon:  pushIconURL,
		Data:  PushPayloadData{URL: "/post/" + ev.PostID},
	})
	if err != nil {
		return result, fmt.Errorf("encoding push payload: %w", err)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(sub models.PushSubscription) {
			defer wg.Done()
			status, sendErr := p.sender.Send(ctx, &sub, payload)

			mu.Lock()
			defer mu.Unlock()
			if sendErr == nil {
				result.Delivered++
				return
			}
			result.Failed++
			log.Printf("pusher: delivery to %s failed: %v", sub.Endpoint, sendErr)
			if status == http.StatusGone || status == http.StatusNotFound {
				if err := p.subscriptions.DeleteByEndpoint(sub.Endpoint); err != nil {
					log.Printf("pusher: pruning expired subscription %s failed: %v", sub.Endpoint, err)
				} else {
					result.Pruned++
				}
			}
		}(subs[i])
	}
	wg.Wait()

	return result, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
