package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*ProviderSession
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*ProviderSession{}}
}

func (p *fakeProvider) CreateSession(_ context.Context, r CheckoutRequest) (*ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("cs_test_%d", p.seq)
	ps := &ProviderSession{ID: id, URL: "https://pay.test/" + id, Status: "open", PaymentStatus: "unpaid"}
	p.sessions[id] = ps
	return ps, nil
}

func (p *fakeProvider) GetSession(_ context.Context, id string) (*ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ps, ok := p.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ps
	return &cp, nil
}

func (p *fakeProvider) set(id, status, payment string) {
	p.mu.Lock()
	p.sessions[id].Status = status
	p.sessions[id].PaymentStatus = payment
	p.mu.Unlock()
}

const testWebhookSecret = "whsec_test"

func newCheckout(f *fixture, provider PaymentProvider, notifier Notifier) *CheckoutService {
	svc := NewCheckoutService(f.db, f.eco, provider, CheckoutConfig{WebhookSecret: testWebhookSecret}, notifier, f.pub, f.log)
	svc.Now = f.clock.Now
	return svc
}

func signedEvent(t *testing.T, now time.Time, typ string, obj ProviderSession) ([]byte, string) {
	t.Helper()
	ev := map[string]any{"type": typ, "data": map[string]any{"object": obj}}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	ts := now.Unix()
	return payload, fmt.Sprintf("t=%d,v1=%s", ts, Sign(testWebhookSecret, payload, ts))
}

func TestCompleteCreditsOnce(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{}
	svc := newCheckout(f, newFakeProvider(), notifier)
	ctx := context.Background()
	f.profile(t, "u1", "Una", models.RolePlayer)

	_, err := svc.CreateCheckout(ctx, "u1", "gold")
	assert.ErrorIs(t, err, ErrInvalidInput)

	cs, err := svc.CreateCheckout(ctx, "u1", "club")
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutPending, cs.Status)
	assert.Equal(t, int64(550), cs.Tokens)
	assert.NotEmpty(t, cs.CheckoutURL)

	for i := 0; i < 3; i++ {
		done, err := svc.Complete(ctx, cs.ProviderSessionID)
		require.NoError(t, err)
		assert.Equal(t, models.CheckoutPaid, done.Status)
	}
	assert.Equal(t, DefaultEconomyConfig.StarterTokens+550, f.progress(t, "u1").Tokens)
	assert.Len(t, notifier.sent, 1)
	assert.Len(t, f.pub.forTable(checkoutTable), 1)

	_, err = svc.Complete(ctx, "cs_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteAfterExpiryStillCredits(t *testing.T) {
	f := newFixture(t)
	svc := newCheckout(f, newFakeProvider(), nil)
	ctx := context.Background()

	cs, err := svc.CreateCheckout(ctx, "u1", "starter")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, cs.ProviderSessionID, models.CheckoutExpired))

	for i := 0; i < 2; i++ {
		done, err := svc.Complete(ctx, cs.ProviderSessionID)
		require.NoError(t, err)
		assert.Equal(t, models.CheckoutPaid, done.Status)
		require.NotNil(t, done.CompletedAt)
	}
	assert.Equal(t, DefaultEconomyConfig.StarterTokens+100, f.progress(t, "u1").Tokens)
	assert.Len(t, f.pub.forTable(checkoutTable), 1)
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture(t)
	provider := newFakeProvider()
	svc := newCheckout(f, provider, nil)
	ctx := context.Background()

	cs, err := svc.CreateCheckout(ctx, "u1", "starter")
	require.NoError(t, err)

	paid := ProviderSession{ID: cs.ProviderSessionID, Status: "complete", PaymentStatus: "paid"}
	payload, sig := signedEvent(t, f.clock.Now(), "checkout.session.completed", paid)

	assert.ErrorIs(t, svc.HandleWebhook(ctx, payload, "t=1,v1=deadbeef"), ErrBadSignature)
	assert.ErrorIs(t, svc.HandleWebhook(ctx, []byte(`{"type":"x"}`), sig), ErrBadSignature)

	require.NoError(t, svc.HandleWebhook(ctx, payload, sig))
	require.NoError(t, svc.HandleWebhook(ctx, payload, sig))
	assert.Equal(t, DefaultEconomyConfig.StarterTokens+100, f.progress(t, "u1").Tokens)

	// Unknown checkouts are acknowledged so the provider stops retrying.
	unknown := ProviderSession{ID: "cs_other", Status: "complete", PaymentStatus: "paid"}
	payload, sig = signedEvent(t, f.clock.Now(), "checkout.session.completed", unknown)
	require.NoError(t, svc.HandleWebhook(ctx, payload, sig))

	cs2, err := svc.CreateCheckout(ctx, "u1", "pro")
	require.NoError(t, err)
	expired := ProviderSession{ID: cs2.ProviderSessionID, Status: "expired", PaymentStatus: "unpaid"}
	payload, sig = signedEvent(t, f.clock.Now(), "checkout.session.expired", expired)
	require.NoError(t, svc.HandleWebhook(ctx, payload, sig))

	var stored models.CheckoutSession
	require.NoError(t, f.db.Where("id = ?", cs2.ID).First(&stored).Error)
	assert.Equal(t, models.CheckoutExpired, stored.Status)
}

func TestVerifySignatureTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := []byte(`{"type":"ping"}`)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), Sign("s3cret", payload, now.Unix()))

	assert.NoError(t, VerifySignature("s3cret", payload, header, now.Add(time.Minute)))
	assert.ErrorIs(t, VerifySignature("s3cret", payload, header, now.Add(10*time.Minute)), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("other", payload, header, now), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("", payload, header, now), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("s3cret", payload, "garbage", now), ErrBadSignature)
}

func TestReconcileSettlesStaleCheckouts(t *testing.T) {
	f := newFixture(t)
	provider := newFakeProvider()
	svc := newCheckout(f, provider, nil)
	ctx := context.Background()

	paid, err := svc.CreateCheckout(ctx, "u1", "starter")
	require.NoError(t, err)
	gone, err := svc.CreateCheckout(ctx, "u2", "starter")
	require.NoError(t, err)
	open, err := svc.CreateCheckout(ctx, "u3", "starter")
	require.NoError(t, err)
	provider.set(paid.ProviderSessionID, "complete", "paid")
	provider.set(gone.ProviderSessionID, "expired", "unpaid")

	n, err := svc.Reconcile(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh checkouts are left to the webhook")

	f.clock.Advance(2 * time.Hour)
	n, err = svc.Reconcile(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	statuses := map[string]models.CheckoutStatus{}
	var all []models.CheckoutSession
	require.NoError(t, f.db.Find(&all).Error)
	for _, cs := range all {
		statuses[cs.ID] = cs.Status
	}
	assert.Equal(t, models.CheckoutPaid, statuses[paid.ID])
	assert.Equal(t, models.CheckoutExpired, statuses[gone.ID])
	assert.Equal(t, models.CheckoutPending, statuses[open.ID])
}

func TestHTTPPaymentProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/checkout/sessions":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "599", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
			assert.Equal(t, "u1", r.PostForm.Get("client_reference_id"))
			_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.test/cs_1","status":"open","payment_status":"unpaid"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/checkout/sessions/cs_1":
			_, _ = w.Write([]byte(`{"id":"cs_1","status":"complete","payment_status":"paid"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := &HTTPPaymentProvider{BaseURL: srv.URL, APIKey: "sk_test", Client: srv.Client()}
	ctx := context.Background()

	ps, err := p.CreateSession(ctx, CheckoutRequest{UserID: "u1", PackID: "x", Name: "X", AmountCents: 599, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", ps.ID)
	assert.False(t, ps.Paid())

	ps, err = p.GetSession(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, ps.Paid())

	_, err = p.GetSession(ctx, "cs_2")
	assert.ErrorIs(t, err, ErrUnavailable)

	bad := &HTTPPaymentProvider{BaseURL: srv.URL, APIKey: "nope", Client: srv.Client()}
	_, err = bad.GetSession(ctx, "cs_1")
	assert.ErrorIs(t, err, ErrUnavailable)
}
