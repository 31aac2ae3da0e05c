package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PlayerFolio/internal/pkg/metrics"
)

const (
	paystackStatusActive      = "active"
	paystackStatusNonRenewing = "non-renewing"
	paystackStatusAttention   = "attention"
	paystackStatusCancelled   = "cancelled"
	paystackStatusComplete    = "complete"
)

// PaystackClient talks to the Paystack REST API.
type PaystackClient struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

// PaystackAPIError is a non-2xx answer from the API.
type PaystackAPIError struct {
	StatusCode int
	Message    string
}

func (e *PaystackAPIError) Error() string {
	return fmt.Sprintf("paystack request failed: status=%d message=%s", e.StatusCode, e.Message)
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackSubscription struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
	Plan             struct {
		PlanCode string `json:"plan_code"`
	} `json:"plan"`
}

type paystackCustomer struct {
	Email         string                 `json:"email"`
	CustomerCode  string                 `json:"customer_code"`
	Subscriptions []paystackSubscription `json:"subscriptions"`
}

type paystackPlan struct {
	PlanCode string `json:"plan_code"`
}

type paystackPlanRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Interval    string `json:"interval,omitempty"`
}

// NewPaystackClient creates a client from the billing config.
func NewPaystackClient(cfg *Config) *PaystackClient {
	return &PaystackClient{
		SecretKey: cfg.SecretKey,
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *PaystackClient) CreateSubscription(ctx context.Context, customer, planCode string) (string, error) {
	customer = strings.TrimSpace(customer)
	planCode = strings.TrimSpace(planCode)
	if customer == "" || planCode == "" {
		return "", errors.New("customer and plan code are required")
	}

	code, err := c.createSubscription(ctx, customer, planCode)
	if !errors.Is(err, ErrDuplicateSubscription) {
		return code, err
	}

	existing, err := c.findSubscription(ctx, customer, planCode)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", ErrDuplicateSubscription
	}
	if existing.Status == paystackStatusActive || existing.Status == paystackStatusAttention {
		log.Infof("[Paystack] Reusing subscription %s for %s on %s", existing.SubscriptionCode, customer, planCode)
		return existing.SubscriptionCode, nil
	}

	// a non-renewing subscription blocks a new one until it is disabled
	if err := c.disable(ctx, existing.SubscriptionCode, existing.EmailToken); err != nil && !errors.Is(err, ErrGatewayNotFound) {
		return "", fmt.Errorf("disable blocking subscription %s: %w", existing.SubscriptionCode, err)
	}
	return c.createSubscription(ctx, customer, planCode)
}

func (c *PaystackClient) createSubscription(ctx context.Context, customer, planCode string) (string, error) {
	var sub paystackSubscription
	err := c.do(ctx, "create_subscription", http.MethodPost, "/subscription", map[string]string{
		"customer": customer,
		"plan":     planCode,
	}, &sub)
	if err != nil {
		var apiErr *PaystackAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && isDuplicateMessage(apiErr.Message) {
			return "", ErrDuplicateSubscription
		}
		return "", err
	}
	if sub.SubscriptionCode == "" {
		return "", errors.New("paystack returned an empty subscription code")
	}
	return sub.SubscriptionCode, nil
}

// findSubscription returns the customer's subscription on planCode that still
// blocks a new one, or nil.
func (c *PaystackClient) findSubscription(ctx context.Context, customer, planCode string) (*paystackSubscription, error) {
	var cust paystackCustomer
	if err := c.do(ctx, "fetch_customer", http.MethodGet, "/customer/"+url.PathEscape(customer), nil, &cust); err != nil {
		return nil, err
	}
	var blocking *paystackSubscription
	for i := range cust.Subscriptions {
		sub := &cust.Subscriptions[i]
		if sub.Plan.PlanCode != planCode {
			continue
		}
		switch sub.Status {
		case paystackStatusActive, paystackStatusAttention:
			return sub, nil
		case paystackStatusNonRenewing:
			blocking = sub
		}
	}
	return blocking, nil
}

func (c *PaystackClient) DisableSubscription(ctx context.Context, subscriptionCode string) error {
	subscriptionCode = strings.TrimSpace(subscriptionCode)
	if subscriptionCode == "" {
		return nil
	}

	var sub paystackSubscription
	err := c.do(ctx, "fetch_subscription", http.MethodGet, "/subscription/"+url.PathEscape(subscriptionCode), nil, &sub)
	if errors.Is(err, ErrGatewayNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch sub.Status {
	case paystackStatusCancelled, paystackStatusComplete:
		return nil
	}

	err = c.disable(ctx, subscriptionCode, sub.EmailToken)
	if errors.Is(err, ErrGatewayNotFound) {
		return nil
	}
	return err
}

func (c *PaystackClient) disable(ctx context.Context, code, token string) error {
	return c.do(ctx, "disable_subscription", http.MethodPost, "/subscription/disable", map[string]string{
		"code":  code,
		"token": token,
	}, nil)
}

func (c *PaystackClient) CreatePlan(ctx context.Context, in PlanInput) (string, error) {
	var plan paystackPlan
	if err := c.do(ctx, "create_plan", http.MethodPost, "/plan", toPaystackPlan(in), &plan); err != nil {
		return "", err
	}
	if plan.PlanCode == "" {
		return "", errors.New("paystack returned an empty plan code")
	}
	return plan.PlanCode, nil
}

func (c *PaystackClient) UpdatePlan(ctx context.Context, planCode string, in PlanInput) error {
	return c.do(ctx, "update_plan", http.MethodPut, "/plan/"+url.PathEscape(planCode), toPaystackPlan(in), nil)
}

// DeactivatePlan archives the plan so it can no longer be subscribed to.
func (c *PaystackClient) DeactivatePlan(ctx context.Context, planCode string) error {
	err := c.do(ctx, "deactivate_plan", http.MethodPut, "/plan/"+url.PathEscape(planCode), map[string]bool{
		"is_archived": true,
	}, nil)
	if errors.Is(err, ErrGatewayNotFound) {
		return nil
	}
	return err
}

func toPaystackPlan(in PlanInput) paystackPlanRequest {
	return paystackPlanRequest{
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.AmountMinor,
		Currency:    in.Currency,
		Interval:    in.Interval,
	}
}

func isDuplicateMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "already in place") || strings.Contains(msg, "already exists")
}

func (c *PaystackClient) do(ctx context.Context, operation, method, path string, in, out any) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.GatewayRequests.WithLabelValues(operation, result).Inc()
	}()

	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("PAYSTACK_SECRET_KEY is not configured")
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env paystackEnvelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrGatewayNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = string(raw)
		}
		return &PaystackAPIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode paystack %s response: %w", operation, err)
	}
	return nil
}
