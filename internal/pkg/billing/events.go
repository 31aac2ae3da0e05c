package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Provider event names handled by the processor.
const (
	EventChargeSuccess        = "charge.success"
	EventSubscriptionCreate   = "subscription.create"
	EventSubscriptionDisable  = "subscription.disable"
	EventSubscriptionNotRenew = "subscription.not_renew"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// ErrMalformedEvent is returned for bodies that are not a provider event.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Event is one variant of the provider webhook payload. Each variant only
// carries the fields its event type guarantees.
type Event interface {
	EventType() string
}

// SubscriptionCharged is a successful charge, a new subscription or a renewal.
// The subscriber is resolved by customer email.
type SubscriptionCharged struct {
	Type             string
	CustomerEmail    string
	PlanCode         string
	SubscriptionCode string
}

// SubscriptionEnded is a disabled or not-renewing subscription.
type SubscriptionEnded struct {
	Type             string
	SubscriptionCode string
}

// PaymentFailed is a failed invoice on a recurring subscription.
type PaymentFailed struct {
	Type             string
	SubscriptionCode string
	CustomerEmail    string
}

// UnhandledEvent is any event type the processor does not act on.
type UnhandledEvent struct {
	Type string
}

func (e SubscriptionCharged) EventType() string { return e.Type }
func (e SubscriptionEnded) EventType() string   { return e.Type }
func (e PaymentFailed) EventType() string       { return e.Type }
func (e UnhandledEvent) EventType() string      { return e.Type }

type rawCustomer struct {
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

type rawPlan struct {
	PlanCode string `json:"plan_code"`
}

type rawSubscription struct {
	SubscriptionCode string `json:"subscription_code"`
}

type rawEvent struct {
	Event string `json:"event"`
	Data  struct {
		SubscriptionCode string          `json:"subscription_code"`
		Customer         rawCustomer     `json:"customer"`
		Plan             json.RawMessage `json:"plan"`
		Subscription     json.RawMessage `json:"subscription"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook body into its event variant.
func ParseEvent(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	eventType := strings.TrimSpace(raw.Event)
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	subscriptionCode := strings.TrimSpace(raw.Data.SubscriptionCode)
	if subscriptionCode == "" {
		// invoice events nest the subscription
		var sub rawSubscription
		if decodeOptional(raw.Data.Subscription, &sub) {
			subscriptionCode = strings.TrimSpace(sub.SubscriptionCode)
		}
	}
	var plan rawPlan
	decodeOptional(raw.Data.Plan, &plan)
	email := strings.TrimSpace(raw.Data.Customer.Email)

	switch eventType {
	case EventChargeSuccess, EventSubscriptionCreate:
		if email == "" {
			return nil, fmt.Errorf("%w: %s without customer email", ErrMalformedEvent, eventType)
		}
		return SubscriptionCharged{
			Type:             eventType,
			CustomerEmail:    email,
			PlanCode:         strings.TrimSpace(plan.PlanCode),
			SubscriptionCode: subscriptionCode,
		}, nil
	case EventSubscriptionDisable, EventSubscriptionNotRenew:
		if subscriptionCode == "" {
			return nil, fmt.Errorf("%w: %s without subscription code", ErrMalformedEvent, eventType)
		}
		return SubscriptionEnded{Type: eventType, SubscriptionCode: subscriptionCode}, nil
	case EventInvoicePaymentFailed:
		if subscriptionCode == "" {
			return nil, fmt.Errorf("%w: %s without subscription code", ErrMalformedEvent, eventType)
		}
		return PaymentFailed{Type: eventType, SubscriptionCode: subscriptionCode, CustomerEmail: email}, nil
	default:
		return UnhandledEvent{Type: eventType}, nil
	}
}

// decodeOptional tolerates null, empty and non-object values.
func decodeOptional(raw json.RawMessage, v any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
