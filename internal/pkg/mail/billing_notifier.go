package mail

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

// SendFunc delivers one message.
type SendFunc func(to, subject, body string) error

// BillingNotifier mails subscribers about billing events.
type BillingNotifier struct {
	send    SendFunc
	appName string
}

// NewBillingNotifier creates a notifier. A nil send uses SendMail.
func NewBillingNotifier(appName string, send SendFunc) *BillingNotifier {
	if send == nil {
		send = SendMail
	}
	if strings.TrimSpace(appName) == "" {
		appName = "PlayerFolio"
	}
	return &BillingNotifier{send: send, appName: appName}
}

// PaymentFailed tells the user that the renewal payment failed and the
// account is back on the free plan.
func (n *BillingNotifier) PaymentFailed(ctx context.Context, user *models.User) error {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("%s: your subscription payment failed", n.appName)
	body := fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>we could not collect the payment for your %s subscription, so your account has been moved to the free plan.</p>"+
			"<p>You can subscribe again from your account settings at any time.</p>",
		html.EscapeString(user.Name), html.EscapeString(n.appName),
	)
	return n.send(user.Email, subject, body)
}
