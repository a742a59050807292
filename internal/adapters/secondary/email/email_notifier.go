package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending emails.
// It implements the ports.Notifier interface; wiring a real SMTP client
// behind the same interface is a deployment concern.
type MockSMTPNotifier struct {
	userRepo    ports.UserRepository
	fromAddress string
	fromName    string
	logger      *slog.Logger
}

// NewMockSMTPNotifier creates a new mock notifier.
// It requires a UserRepository to fetch recipient details.
func NewMockSMTPNotifier(userRepo ports.UserRepository, fromAddress, fromName string, logger *slog.Logger) ports.Notifier {
	return &MockSMTPNotifier{
		userRepo:    userRepo,
		fromAddress: fromAddress,
		fromName:    fromName,
		logger:      logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification to the console instead of sending an email.
// It runs in a separate goroutine and should handle its own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	// Use a new background context in case the original request context is cancelled.
	notifyCtx := context.Background()

	user, err := n.userRepo.GetByID(notifyCtx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to get user for notification",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	body := fmt.Sprintf("Hi %s,\n\n%s\n\nView the ticket: /tickets/%d\n\n%s",
		user.FullName, params.Message, params.TicketID, n.fromName)

	n.logger.Info("mock email sent",
		"from", fmt.Sprintf("%s <%s>", n.fromName, n.fromAddress),
		"to_name", user.FullName,
		"to_email", user.Email,
		"subject", params.Subject,
		"ticket_id", params.TicketID,
		"body_bytes", len(body),
	)
}
