package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courtside/models"
	"courtside/realtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const checkoutTable = "checkout_sessions"

type TokenPack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tokens      int64  `json:"tokens"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

var TokenPacks = []TokenPack{
	{ID: "starter", Name: "Starter Pack", Tokens: 100, AmountCents: 199, Currency: "usd"},
	{ID: "club", Name: "Club Pack", Tokens: 550, AmountCents: 899, Currency: "usd"},
	{ID: "pro", Name: "Pro Pack", Tokens: 1200, AmountCents: 1599, Currency: "usd"},
}

func findPack(id string) (TokenPack, bool) {
	for _, p := range TokenPacks {
		if p.ID == id {
			return p, true
		}
	}
	return TokenPack{}, false
}

type CheckoutConfig struct {
	SuccessURL    string
	CancelURL     string
	WebhookSecret string
}

type CheckoutService struct {
	DB        *gorm.DB
	Economy   *Economy
	Provider  PaymentProvider
	Config    CheckoutConfig
	Notifier  Notifier
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewCheckoutService(db *gorm.DB, eco *Economy, provider PaymentProvider, cfg CheckoutConfig, notifier Notifier, pub realtime.Publisher, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		DB: db, Economy: eco, Provider: provider, Config: cfg,
		Notifier: notifier, Publisher: pub, Logger: logger, Now: utcNow,
	}
}

func (s *CheckoutService) Packs() []TokenPack {
	return TokenPacks
}

// CreateCheckout opens a hosted checkout for a token pack and stores it as pending.
func (s *CheckoutService) CreateCheckout(ctx context.Context, userID, packID string) (*models.CheckoutSession, error) {
	pack, ok := findPack(packID)
	if !ok {
		return nil, invalid("unknown pack")
	}
	ps, err := s.Provider.CreateSession(ctx, CheckoutRequest{
		UserID:      userID,
		PackID:      pack.ID,
		Name:        pack.Name,
		AmountCents: pack.AmountCents,
		Currency:    pack.Currency,
		SuccessURL:  s.Config.SuccessURL,
		CancelURL:   s.Config.CancelURL,
	})
	if err != nil {
		s.Logger.Error("create checkout failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	cs := models.CheckoutSession{
		UserID:            userID,
		PackID:            pack.ID,
		Tokens:            pack.Tokens,
		AmountCents:       pack.AmountCents,
		Currency:          pack.Currency,
		ProviderSessionID: ps.ID,
		CheckoutURL:       ps.URL,
		Status:            models.CheckoutPending,
	}
	if err := s.DB.WithContext(ctx).Create(&cs).Error; err != nil {
		return nil, errors.Wrap(err, "store checkout")
	}
	s.Logger.Info("checkout created",
		zap.String("user_id", userID), zap.String("pack_id", pack.ID), zap.String("provider_session_id", ps.ID))
	return &cs, nil
}

// Complete credits a paid checkout exactly once. Repeated calls are no-ops.
// A checkout already closed as expired or failed is still credited: payment
// confirmation from the provider wins.
func (s *CheckoutService) Complete(ctx context.Context, providerSessionID string) (*models.CheckoutSession, error) {
	var (
		cs       models.CheckoutSession
		credited bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_session_id = ?", providerSessionID).First(&cs).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "load checkout")
		}
		if cs.Status == models.CheckoutPaid {
			return nil
		}
		if cs.Status != models.CheckoutPending {
			// The provider took the money after we gave up on the checkout.
			s.Logger.Warn("payment received for closed checkout",
				zap.String("checkout_id", cs.ID), zap.String("status", string(cs.Status)))
		}
		now := s.Now()
		res := tx.Model(&models.CheckoutSession{}).
			Where("id = ? AND status = ?", cs.ID, cs.Status).
			Updates(map[string]interface{}{"status": models.CheckoutPaid, "completed_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "mark checkout paid")
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if _, err := s.Economy.WithTx(tx).AwardTokens(ctx, cs.UserID, cs.Tokens, models.TokenPurchase, "pack_"+cs.PackID, cs.ID); err != nil {
			return err
		}
		cs.Status = models.CheckoutPaid
		cs.CompletedAt = &now
		credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if credited {
		s.Logger.Info("checkout paid", zap.String("checkout_id", cs.ID), zap.Int64("tokens", cs.Tokens))
		s.sendReceipt(ctx, &cs)
		publishFor(ctx, s.Publisher, s.Logger, checkoutTable, realtime.EventUpdate, cs.ID, cs.UserID)
	}
	return &cs, nil
}

// Close marks a pending checkout expired or failed.
func (s *CheckoutService) Close(ctx context.Context, providerSessionID string, status models.CheckoutStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("provider_session_id = ? AND status = ?", providerSessionID, models.CheckoutPending).
		Update("status", status)
	return errors.Wrap(res.Error, "close checkout")
}

// Reconcile polls the provider for pending checkouts older than minAge and
// settles the ones that were paid or expired without a webhook.
func (s *CheckoutService) Reconcile(ctx context.Context, minAge time.Duration) (int, error) {
	var pending []models.CheckoutSession
	err := s.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.CheckoutPending, s.Now().Add(-minAge)).
		Order("created_at ASC").
		Limit(100).
		Find(&pending).Error
	if err != nil {
		return 0, errors.Wrap(err, "list pending checkouts")
	}

	settled := 0
	for _, cs := range pending {
		ps, err := s.Provider.GetSession(ctx, cs.ProviderSessionID)
		if err != nil {
			s.Logger.Warn("poll checkout failed", zap.String("checkout_id", cs.ID), zap.Error(err))
			continue
		}
		switch {
		case ps.Paid():
			if _, err := s.Complete(ctx, cs.ProviderSessionID); err != nil {
				s.Logger.Error("complete checkout failed", zap.String("checkout_id", cs.ID), zap.Error(err))
				continue
			}
			settled++
		case ps.Expired():
			if err := s.Close(ctx, cs.ProviderSessionID, models.CheckoutExpired); err != nil {
				s.Logger.Error("expire checkout failed", zap.String("checkout_id", cs.ID), zap.Error(err))
				continue
			}
			settled++
		}
	}
	return settled, nil
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object ProviderSession `json:"object"`
	} `json:"data"`
}

// HandleWebhook verifies and applies a provider event.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := VerifySignature(s.Config.WebhookSecret, payload, signature, s.Now()); err != nil {
		return err
	}
	var ev webhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return invalid("malformed event")
	}
	obj := ev.Data.Object
	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if !obj.Paid() {
			return nil
		}
		_, err := s.Complete(ctx, obj.ID)
		if errors.Is(err, ErrNotFound) {
			s.Logger.Warn("webhook for unknown checkout", zap.String("provider_session_id", obj.ID))
			return nil
		}
		return err
	case "checkout.session.expired":
		return s.Close(ctx, obj.ID, models.CheckoutExpired)
	case "checkout.session.async_payment_failed":
		return s.Close(ctx, obj.ID, models.CheckoutFailed)
	default:
		return nil
	}
}

func (s *CheckoutService) sendReceipt(ctx context.Context, cs *models.CheckoutSession) {
	if s.Notifier == nil {
		return
	}
	var p models.PlayerProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", cs.UserID).First(&p).Error; err != nil {
		return
	}
	text := fmt.Sprintf("Thanks for your purchase. %d tokens were added to your balance.", cs.Tokens)
	if err := s.Notifier.Notify(ctx, Notification{ToEmail: p.Email, ToName: p.DisplayName, Subject: "Your Courtside receipt", Text: text}); err != nil {
		s.Logger.Warn("receipt failed", zap.String("checkout_id", cs.ID), zap.Error(err))
	}
}
