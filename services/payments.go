package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ProviderSession is the payment provider's view of a hosted checkout.
type ProviderSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`         // open, complete, expired
	PaymentStatus string `json:"payment_status"` // paid, unpaid
}

func (p *ProviderSession) Paid() bool    { return p.PaymentStatus == "paid" }
func (p *ProviderSession) Expired() bool { return p.Status == "expired" }

type CheckoutRequest struct {
	UserID      string
	PackID      string
	Name        string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type PaymentProvider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*ProviderSession, error)
	GetSession(ctx context.Context, id string) (*ProviderSession, error)
}

// HTTPPaymentProvider talks to a Stripe-compatible checkout API.
type HTTPPaymentProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (p *HTTPPaymentProvider) do(ctx context.Context, method, path string, form url.Values) (*ProviderSession, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(p.BaseURL, "/")+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build provider request")
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read provider response")
	}
	if resp.StatusCode >= 300 {
		return nil, errors.Wrap(ErrUnavailable, fmt.Sprintf("provider status %d", resp.StatusCode))
	}
	var ps ProviderSession
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, errors.Wrap(err, "decode provider response")
	}
	return &ps, nil
}

func (p *HTTPPaymentProvider) CreateSession(ctx context.Context, r CheckoutRequest) (*ProviderSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", r.SuccessURL)
	form.Set("cancel_url", r.CancelURL)
	form.Set("client_reference_id", r.UserID)
	form.Set("metadata[pack_id]", r.PackID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", r.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(r.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", r.Name)
	return p.do(ctx, http.MethodPost, "/checkout/sessions", form)
}

func (p *HTTPPaymentProvider) GetSession(ctx context.Context, id string) (*ProviderSession, error) {
	return p.do(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(id), nil)
}

const webhookTolerance = 5 * time.Minute

var ErrBadSignature = errors.New("invalid webhook signature")

// VerifySignature checks a "t=<unix>,v1=<hex hmac>" header, where the HMAC-SHA256
// covers "<t>.<payload>".
func VerifySignature(secret string, payload []byte, header string, now time.Time) error {
	if secret == "" {
		return ErrBadSignature
	}
	var (
		ts   string
		sigs []string
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || len(sigs) == 0 {
		return ErrBadSignature
	}
	if d := now.Sub(time.Unix(unix, 0)); d > webhookTolerance || d < -webhookTolerance {
		return ErrBadSignature
	}
	expected := Sign(secret, payload, unix)
	for _, s := range sigs {
		if hmac.Equal([]byte(s), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign returns the hex HMAC for payload at timestamp unix.
func Sign(secret string, payload []byte, unix int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
