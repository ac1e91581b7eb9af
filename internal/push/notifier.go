package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// Notification is the payload pushed to a browser when its user is offline
// at delivery time.
type Notification struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
}

// Notifier sends best-effort web-push notifications. Failures are logged,
// never surfaced to the message path.
type Notifier struct {
	repo       repositories.PushRepository
	publicKey  string
	privateKey string
	subscriber string
}

// NewNotifier constructs a Notifier. Returns nil when VAPID keys are not
// configured; callers treat a nil notifier as disabled.
func NewNotifier(repo repositories.PushRepository, publicKey, privateKey, subscriber string) *Notifier {
	if publicKey == "" || privateKey == "" {
		log.Printf("web push disabled: missing VAPID keys")
		return nil
	}
	return &Notifier{repo: repo, publicKey: publicKey, privateKey: privateKey, subscriber: subscriber}
}

// Notify pushes to every subscription the user has registered. Endpoints
// that have gone away are pruned.
func (n *Notifier) Notify(ctx context.Context, userID string, notification Notification) {
	if n == nil {
		return
	}

	subs, err := n.repo.SubscriptionsFor(ctx, userID)
	if err != nil {
		log.Printf("push subscriptions lookup failed for %s: %v", userID, err)
		return
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		log.Printf("push payload marshal failed: %v", err)
		return
	}

	for _, sub := range subs {
		n.send(ctx, sub, payload)
	}
}

func (n *Notifier) send(ctx context.Context, sub models.PushSubscription, payload []byte) {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotification(payload, target, &webpush.Options{
		Subscriber:      n.subscriber,
		VAPIDPublicKey:  n.publicKey,
		VAPIDPrivateKey: n.privateKey,
		TTL:             60,
	})
	if err != nil {
		log.Printf("push send failed for %s: %v", sub.UserID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		if err := n.repo.DeleteSubscription(ctx, sub.UserID, sub.Endpoint); err != nil {
			log.Printf("push subscription cleanup failed: %v", err)
		}
	}
}
