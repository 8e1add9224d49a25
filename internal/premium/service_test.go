package premium

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/patente-app/backend/internal/database/dbtest"
	"github.com/patente-app/backend/internal/middleware"
	"github.com/patente-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendPremium(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		until *time.Time
		want  time.Time
	}{
		{"never premium", nil, now.AddDate(0, 1, 0)},
		{"expired", &past, now.AddDate(0, 1, 0)},
		{"active", &future, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := ExtendPremium(now, tt.until); !got.Equal(tt.want) {
			t.Errorf("%s: ExtendPremium = %v, want %v", tt.name, got, tt.want)
		}
	}
}

const secret = "whsec_test"

func newService(t *testing.T) (*Service, *Store, int64) {
	t.Helper()
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "pay@example.com")
	store := NewStore(db)
	svc := NewService(store, Config{
		WebhookSecret:   []byte(secret),
		CheckoutBaseURL: "https://pay.example.com/checkout",
		PriceCents:      999,
		Currency:        "usd",
	})
	return svc, store, user
}

func completedEvent(session string) []byte {
	return []byte(`{"type":"checkout.session.completed","data":{"session_id":"` + session + `","payment_status":"paid"}}`)
}

func TestCheckoutAndWebhook(t *testing.T) {
	svc, store, user := newService(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	resp, err := svc.CreateCheckout(ctx, user)
	require.NoError(t, err)
	u, err := url.Parse(resp.URL)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)
	assert.Equal(t, resp.SessionID, u.Query().Get("session_id"))

	p, err := store.GetPayment(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, 999, p.Amount)

	body := completedEvent(resp.SessionID)
	assert.ErrorIs(t, svc.HandleWebhook(ctx, body, "deadbeef"), ErrBadSignature)

	require.NoError(t, svc.HandleWebhook(ctx, body, Sign([]byte(secret), body)))
	p, err = store.GetPayment(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, p.Status)

	var until time.Time
	require.NoError(t, store.db.GetContext(ctx, &until, store.db.Rebind(`SELECT premium_until FROM users WHERE id = ?`), user))
	assert.True(t, until.Equal(now.AddDate(0, 1, 0)), "premium_until = %v", until)

	// A redelivered event must not extend twice.
	require.NoError(t, svc.HandleWebhook(ctx, body, Sign([]byte(secret), body)))
	var again time.Time
	require.NoError(t, store.db.GetContext(ctx, &again, store.db.Rebind(`SELECT premium_until FROM users WHERE id = ?`), user))
	assert.True(t, again.Equal(until), "premium_until moved on redelivery: %v", again)

	// A second purchase stacks on the active period.
	second, err := svc.CreateCheckout(ctx, user)
	require.NoError(t, err)
	body2 := completedEvent(second.SessionID)
	require.NoError(t, svc.HandleWebhook(ctx, body2, Sign([]byte(secret), body2)))
	require.NoError(t, store.db.GetContext(ctx, &again, store.db.Rebind(`SELECT premium_until FROM users WHERE id = ?`), user))
	assert.True(t, again.Equal(until.AddDate(0, 1, 0)), "premium_until = %v", again)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc, _, _ := newService(t)
	body := []byte(`{"type":"checkout.session.expired","data":{"session_id":"x","payment_status":"unpaid"}}`)
	assert.NoError(t, svc.HandleWebhook(context.Background(), body, Sign([]byte(secret), body)))
}

func TestWebhookHandlerStatus(t *testing.T) {
	svc, _, user := newService(t)
	r := mux.NewRouter()
	h := NewHandler(svc)
	h.RegisterPublicRoutes(r)
	h.RegisterRoutes(r)

	send := func(body []byte, sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook", bytes.NewReader(body))
		if sig != "" {
			req.Header.Set(SignatureHeader, sig)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	unknown := completedEvent("no-such-session")
	garbage := []byte("not json")
	assert.Equal(t, http.StatusBadRequest, send(unknown, ""))
	assert.Equal(t, http.StatusNotFound, send(unknown, Sign([]byte(secret), unknown)))
	assert.Equal(t, http.StatusBadRequest, send(garbage, Sign([]byte(secret), garbage)))

	req := httptest.NewRequest(http.MethodPost, "/payment/create-checkout-session", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user, models.RoleUser))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
