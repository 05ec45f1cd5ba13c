package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"go.uber.org/zap"
)

// Dispatcher implements settlement.Notifier over email and SMS senders and
// logs every attempt. A nil sender disables its channel.
type Dispatcher struct {
	email  EmailSender
	sms    SMSSender
	logs   LogStore
	logger *zap.Logger
}

// DispatcherConfig holds the collaborators of a Dispatcher
type DispatcherConfig struct {
	Email  EmailSender
	SMS    SMSSender
	Logs   LogStore
	Logger *zap.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{email: cfg.Email, sms: cfg.SMS, logs: cfg.Logs, logger: logger}
}

// SendPaymentConfirmation implements settlement.Notifier
func (d *Dispatcher) SendPaymentConfirmation(ctx context.Context, msg settlement.PaymentConfirmation) error {
	var err error
	switch msg.Channel {
	case settlement.ChannelEmail:
		var subject, body string
		subject, body, err = renderConfirmationEmail(msg)
		if err == nil {
			err = d.sendEmail(ctx, msg.Recipient, subject, body)
		}
	case settlement.ChannelSMS:
		err = d.sendSMS(ctx, msg.Recipient, renderConfirmationSMS(msg))
	default:
		err = fmt.Errorf("notification: unsupported channel %q", msg.Channel)
	}
	d.record(ctx, msg.Channel, msg.Recipient, templatePaymentConfirmation, msg.Reference, err)
	return err
}

// SendWelcome implements settlement.Notifier
func (d *Dispatcher) SendWelcome(ctx context.Context, msg settlement.Welcome) error {
	subject, body, err := renderWelcomeEmail(msg)
	if err == nil {
		err = d.sendEmail(ctx, msg.Recipient, subject, body)
	}
	d.record(ctx, settlement.ChannelEmail, msg.Recipient, templateWelcome, msg.Reference, err)
	return err
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body string) error {
	if d.email == nil {
		return fmt.Errorf("notification: email channel is not configured")
	}
	return d.email.SendEmail(ctx, to, subject, body)
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, body string) error {
	if d.sms == nil {
		return fmt.Errorf("notification: sms channel is not configured")
	}
	return d.sms.SendSMS(ctx, to, body)
}

func (d *Dispatcher) record(ctx context.Context, channel settlement.Channel, recipient, tmpl, reference string, sendErr error) {
	entry := LogEntry{
		Channel:   channel,
		Recipient: recipient,
		Template:  tmpl,
		Reference: reference,
		Status:    LogStatusSent,
		CreatedAt: time.Now(),
	}
	if sendErr != nil {
		entry.Status = LogStatusFailed
		entry.Error = sendErr.Error()
	}
	if d.logs == nil {
		return
	}
	if err := d.logs.Record(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.Warn("Failed to record notification log",
			zap.String("payment_reference", reference),
			zap.String("channel", string(channel)),
			zap.Error(err))
	}
}

var _ settlement.Notifier = (*Dispatcher)(nil)
