package settlement

import (
	"context"
	"fmt"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"go.uber.org/zap"
)

// afterCommit runs the best-effort work that follows a committed settlement.
// Nothing here can undo or fail the settlement.
func (s *Service) afterCommit(ctx context.Context, intent *settlement.PendingIntent, out *settled, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)

	switch intent.Kind {
	case settlement.KindMemberRegistration:
		va := s.provisionVirtualAccount(ctx, out.member, log)
		out.welcomes = append(out.welcomes, s.welcome(out.member, intent.Reference, va))
	case settlement.KindContribution:
		s.sendContributionConfirmations(ctx, intent, out, log)
	}

	for _, w := range out.welcomes {
		if err := s.dispatch(func() error { return s.notifier.SendWelcome(ctx, w) }); err != nil {
			log.Warn("Failed to send welcome notification",
				zap.String("role", w.Role.String()),
				zap.String("recipient", w.Recipient),
				zap.Error(err))
		}
	}

	s.publish(ctx, settlement.NewSettlementCompletedEvent(intent.Reference, intent.Kind, out.amount, out.cooperativeID), log)
}

func (s *Service) provisionVirtualAccount(ctx context.Context, member *identity.Account, log *zap.Logger) *identity.VirtualAccount {
	if s.provisioner == nil || member == nil {
		return nil
	}
	va, err := s.provisioner.CreateVirtualAccount(ctx, settlement.VirtualAccountRequest{
		AccountID:   member.ID,
		AccountType: member.Role.String(),
		AccountName: member.FullName(),
		FirstName:   member.FirstName,
		LastName:    member.LastName,
		Email:       member.Email,
		Phone:       member.Phone,
	})
	if err != nil {
		// a member without a virtual account is a valid state
		log.Warn("Virtual account provisioning failed", zap.String("account_id", member.ID.String()), zap.Error(err))
		return nil
	}
	if va == nil {
		return nil
	}
	if s.accounts != nil {
		if err := s.accounts.SaveVirtualAccount(ctx, member.ID, *va); err != nil {
			log.Warn("Failed to store virtual account", zap.String("account_id", member.ID.String()), zap.Error(err))
		}
	}
	member.AttachVirtualAccount(*va)
	return va
}

func (s *Service) sendContributionConfirmations(ctx context.Context, intent *settlement.PendingIntent, out *settled, log *zap.Logger) {
	email, phone, name := intent.Email, "", ""
	if s.accounts != nil && out.contributorID != nil {
		member, err := s.accounts.FindByID(ctx, *out.contributorID)
		if err != nil {
			log.Warn("Failed to load contributor for confirmation", zap.Error(err))
		} else if member != nil {
			email, phone, name = member.Email, member.Phone, member.FullName()
		}
	}

	msg := settlement.PaymentConfirmation{
		Channel:   settlement.ChannelEmail,
		Recipient: email,
		Name:      name,
		Amount:    out.amount,
		Reference: intent.Reference,
		Kind:      intent.Kind,
	}
	if email != "" {
		if err := s.dispatch(func() error { return s.notifier.SendPaymentConfirmation(ctx, msg) }); err != nil {
			log.Warn("Failed to send payment confirmation email", zap.Error(err))
		}
	}
	if phone != "" {
		msg.Channel, msg.Recipient = settlement.ChannelSMS, phone
		if err := s.dispatch(func() error { return s.notifier.SendPaymentConfirmation(ctx, msg) }); err != nil {
			log.Warn("Failed to send payment confirmation SMS", zap.Error(err))
		}
	}
}

// dispatch calls a notifier and folds panics and errors into
// ErrNotificationDispatch.
func (s *Service) dispatch(send func() error) (err error) {
	if s.notifier == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", settlement.ErrNotificationDispatch, r)
		}
	}()
	if err := send(); err != nil {
		return fmt.Errorf("%w: %v", settlement.ErrNotificationDispatch, err)
	}
	return nil
}
