// Package premium sells and activates the premium subscription: checkout
// sessions are recorded as pending payments and a signed processor webhook
// completes them.
package premium

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patente-app/backend/internal/models"
)

// ErrBadSignature reports a webhook body whose signature does not verify.
var ErrBadSignature = errors.New("invalid webhook signature")

// ExtendPremium returns the new expiry after buying one month. An expired
// or missing period restarts from now.
func ExtendPremium(now time.Time, until *time.Time) time.Time {
	if until == nil || !until.After(now) {
		return now.AddDate(0, 1, 0)
	}
	return until.AddDate(0, 1, 0)
}

// Sign computes the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type Config struct {
	WebhookSecret   []byte
	CheckoutBaseURL string
	PriceCents      int
	Currency        string
}

type Service struct {
	store *Store
	cfg   Config
	now   func() time.Time
}

func NewService(store *Store, cfg Config) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateCheckout records a pending payment and returns where to pay it.
func (s *Service) CreateCheckout(ctx context.Context, userID int64) (*models.CheckoutResponse, error) {
	now := s.now()
	p := models.Payment{
		UserID:    userID,
		SessionID: uuid.NewString(),
		Amount:    s.cfg.PriceCents,
		Currency:  s.cfg.Currency,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	u, err := url.Parse(s.cfg.CheckoutBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse checkout url: %w", err)
	}
	q := u.Query()
	q.Set("session_id", p.SessionID)
	u.RawQuery = q.Encode()

	log.Printf("[premium] checkout user=%d session=%s amount=%d %s", userID, p.SessionID, p.Amount, p.Currency)
	return &models.CheckoutResponse{SessionID: p.SessionID, URL: u.String()}, nil
}

// HandleWebhook verifies and applies one processor event. Events other than
// a paid checkout completion are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if len(s.cfg.WebhookSecret) == 0 {
		return fmt.Errorf("webhook secret not configured: %w", ErrBadSignature)
	}
	want := Sign(s.cfg.WebhookSecret, body)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrBadSignature
	}

	var ev models.PaymentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode webhook: %w", models.ErrInvalidArgument)
	}
	if ev.Type != models.EventCheckoutCompleted || ev.Data.PaymentStatus != string(models.PaymentPaid) {
		log.Printf("[premium] ignoring event type=%s status=%s", ev.Type, ev.Data.PaymentStatus)
		return nil
	}
	if ev.Data.SessionID == "" {
		return fmt.Errorf("webhook without session id: %w", models.ErrInvalidArgument)
	}

	until, extended, err := s.store.CompletePayment(ctx, ev.Data.SessionID, s.now())
	if err != nil {
		return err
	}
	if extended {
		log.Printf("[premium] session=%s paid, premium until %s", ev.Data.SessionID, until.Format(time.RFC3339))
	} else {
		log.Printf("[premium] session=%s already paid", ev.Data.SessionID)
	}
	return nil
}
