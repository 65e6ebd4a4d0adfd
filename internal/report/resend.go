package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/resend/resend-go/v2"
)

// ErrNoRecipients is returned when e-mail is configured without a recipient
var ErrNoRecipients = errors.New("no e-mail recipients configured")

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier e-mails the report through the Resend API with the log file attached
type ResendNotifier struct {
	sender emailSender
	from   string
	to     []string
	cc     []string
	logger *slog.Logger
}

var _ Sink = (*ResendNotifier)(nil)

// NewResendNotifier creates a notifier for the given API key and addresses
func NewResendNotifier(apiKey, from string, to, cc []string, logger *slog.Logger) (*ResendNotifier, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	client := resend.NewClient(apiKey)
	return newResendNotifier(client.Emails, from, to, cc, logger), nil
}

func newResendNotifier(sender emailSender, from string, to, cc []string, logger *slog.Logger) *ResendNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendNotifier{sender: sender, from: from, to: to, cc: cc, logger: logger}
}

func (n *ResendNotifier) Name() string { return "resend" }

// Deliver sends one e-mail. A log file that cannot be read is left out with a warning.
func (n *ResendNotifier) Deliver(ctx context.Context, d Delivery) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Cc:      n.cc,
		Subject: d.Report.Subject,
		Html:    d.Report.HTML,
	}

	if d.LogFile != "" {
		content, err := os.ReadFile(d.LogFile)
		if err != nil {
			n.logger.Warn("log not attached", slog.String("file", d.LogFile), slog.String("error", err.Error()))
		} else {
			params.Attachments = []*resend.Attachment{{
				Content:  content,
				Filename: filepath.Base(d.LogFile),
			}}
		}
	}

	sent, err := n.sender.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send e-mail: %w", err)
	}
	n.logger.Debug("e-mail sent", slog.String("id", sent.Id))
	return nil
}
