package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/app/models"
	"github.com/ManuelReschke/PlayerFolio/internal/pkg/metrics"
)

var (
	// ErrWebhookSecretMissing is a local configuration fault, reported before
	// any signature is looked at.
	ErrWebhookSecretMissing = errors.New("webhook secret is not configured")
	// ErrInvalidSignature is returned for missing or mismatching signatures.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrProcessorClosed is returned for deliveries arriving after Close.
	ErrProcessorClosed = errors.New("webhook processor is shutting down")
)

// Outcome describes what processing did with an event.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeNotFound Outcome = "not_found"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeFailed   Outcome = "failed"
)

const defaultProcessingTimeout = 30 * time.Second

// Notifier delivers best-effort billing notifications to a subscriber.
type Notifier interface {
	PaymentFailed(ctx context.Context, user *models.User) error
}

// Processor verifies provider webhooks and applies them to subscriber records.
type Processor struct {
	store    Store
	catalog  *Catalog
	secret   string
	now      Clock
	notifier Notifier
	timeout  time.Duration
	dispatch func(task func())

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorClock replaces time.Now.
func WithProcessorClock(c Clock) ProcessorOption {
	return func(p *Processor) { p.now = c }
}

// WithNotifier sets the notifier used after fail-closed downgrades.
func WithNotifier(n Notifier) ProcessorOption {
	return func(p *Processor) { p.notifier = n }
}

// WithSynchronousDispatch handles events on the caller's goroutine.
func WithSynchronousDispatch() ProcessorOption {
	return func(p *Processor) { p.dispatch = func(task func()) { task() } }
}

// NewProcessor creates a processor verifying against webhookSecret.
func NewProcessor(store Store, catalog *Catalog, webhookSecret string, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:    store,
		catalog:  catalog,
		secret:   strings.TrimSpace(webhookSecret),
		now:      time.Now,
		timeout:  defaultProcessingTimeout,
		dispatch: func(task func()) { go task() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify checks the claimed signature over the raw body.
func (p *Processor) Verify(payload []byte, signature string) error {
	if p.secret == "" {
		return ErrWebhookSecretMissing
	}
	if !VerifyWebhookSignature(payload, signature, p.secret) {
		return ErrInvalidSignature
	}
	return nil
}

// Receive verifies a delivery and schedules its processing. A nil return
// means the delivery must be acknowledged; processing failures after that
// point are only logged.
func (p *Processor) Receive(payload []byte, signature string) error {
	if err := p.Verify(payload, signature); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProcessorClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	body := append([]byte(nil), payload...)
	p.dispatch(func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if _, err := p.Handle(ctx, body); err != nil {
			log.Errorf("[Billing] Webhook processing failed: %v", err)
		}
	})
	return nil
}

// Close stops accepting deliveries and blocks until every scheduled one has
// been processed. Receive returns ErrProcessorClosed afterwards.
func (p *Processor) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// Handle applies an already verified event. Unknown subscribers and unknown
// event types are absorbed and reported through the outcome only.
func (p *Processor) Handle(ctx context.Context, payload []byte) (Outcome, error) {
	event, err := ParseEvent(payload)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", string(OutcomeFailed)).Inc()
		return OutcomeFailed, err
	}

	var outcome Outcome
	switch e := event.(type) {
	case SubscriptionCharged:
		outcome, err = p.applyCharged(ctx, e)
	case SubscriptionEnded:
		_, outcome, err = p.downgrade(ctx, e.Type, e.SubscriptionCode)
	case PaymentFailed:
		outcome, err = p.applyPaymentFailed(ctx, e)
	default:
		log.Infof("[Billing] Ignoring webhook event %q", event.EventType())
		outcome = OutcomeIgnored
	}

	metrics.WebhookEvents.WithLabelValues(event.EventType(), string(outcome)).Inc()
	return outcome, err
}

func (p *Processor) applyCharged(ctx context.Context, e SubscriptionCharged) (Outcome, error) {
	user, err := p.store.GetByEmail(ctx, e.CustomerEmail)
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			log.Warnf("[Billing] %s for unknown customer %s", e.Type, e.CustomerEmail)
			return OutcomeNotFound, nil
		}
		return OutcomeFailed, fmt.Errorf("resolve customer %s: %w", e.CustomerEmail, err)
	}

	tier, err := p.catalog.TierForCode(ctx, e.PlanCode)
	if err != nil {
		if errors.Is(err, ErrUnknownPlanCode) {
			log.Warnf("[Billing] %s for user %d with unmapped plan code %q", e.Type, user.ID, e.PlanCode)
			return OutcomeIgnored, nil
		}
		return OutcomeFailed, err
	}

	renewal, _ := NextRenewal(tier, p.now())
	subscriptionID := models.StringPtr(e.SubscriptionCode)
	if subscriptionID == nil {
		// plain charges do not carry the subscription code
		subscriptionID = user.ProviderSubscriptionID
	}

	next := models.Billing{Plan: tier, RenewalDate: &renewal, ProviderSubscriptionID: subscriptionID}
	if err := p.store.SetBilling(ctx, user.ID, next); err != nil {
		return OutcomeFailed, fmt.Errorf("update billing of user %d: %w", user.ID, err)
	}
	log.Infof("[Billing] User %d on %s until %s (%s)", user.ID, tier, renewal.Format(time.RFC3339), e.Type)
	return OutcomeApplied, nil
}

func (p *Processor) applyPaymentFailed(ctx context.Context, e PaymentFailed) (Outcome, error) {
	user, outcome, err := p.downgrade(ctx, e.Type, e.SubscriptionCode)
	if err != nil || outcome != OutcomeApplied || p.notifier == nil {
		return outcome, err
	}
	if err := p.notifier.PaymentFailed(ctx, user); err != nil {
		log.Warnf("[Billing] Payment failure notice to user %d failed: %v", user.ID, err)
	}
	return outcome, nil
}

// downgrade moves the owner of subscriptionCode to the free plan.
func (p *Processor) downgrade(ctx context.Context, eventType, subscriptionCode string) (*models.User, Outcome, error) {
	user, err := p.store.GetByProviderSubscriptionID(ctx, subscriptionCode)
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			log.Warnf("[Billing] %s for unknown subscription %s", eventType, subscriptionCode)
			return nil, OutcomeNotFound, nil
		}
		return nil, OutcomeFailed, fmt.Errorf("resolve subscription %s: %w", subscriptionCode, err)
	}

	if err := p.store.SetBilling(ctx, user.ID, models.FreeBilling()); err != nil {
		return nil, OutcomeFailed, fmt.Errorf("downgrade user %d: %w", user.ID, err)
	}
	user.SetBilling(models.FreeBilling())
	log.Infof("[Billing] User %d downgraded to free (%s, subscription %s)", user.ID, eventType, subscriptionCode)
	return user, OutcomeApplied, nil
}
