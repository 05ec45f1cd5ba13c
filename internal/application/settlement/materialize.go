package settlement

import (
	"context"
	"fmt"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// settled is what a committed settlement hands to the post-commit phase
type settled struct {
	transactionReference string
	amount               decimal.Decimal
	cooperativeID        *uuid.UUID
	welcomes             []settlement.Welcome
	member               *identity.Account
	contributorID        *uuid.UUID
}

// materialize creates the intent's domain records and completes the intent in
// one unit of work. A panic inside the unit is turned into an error so the
// caller can fail the intent.
func (s *Service) materialize(ctx context.Context, intent *settlement.PendingIntent, v *settlement.Verification) (out *settled, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic while settling %s: %v", intent.Reference, r)
		}
	}()

	switch intent.Kind {
	case settlement.KindCooperativeRegistration:
		return s.settleCooperativeRegistration(ctx, intent, v)
	case settlement.KindMemberRegistration:
		return s.settleMemberRegistration(ctx, intent, v)
	case settlement.KindContribution:
		return s.settleContribution(ctx, intent)
	}
	return nil, fmt.Errorf("unsupported intent kind %q", intent.Kind)
}

func (s *Service) settleCooperativeRegistration(ctx context.Context, intent *settlement.PendingIntent, v *settlement.Verification) (*settled, error) {
	var p settlement.CooperativeRegistrationPayload
	if err := intent.DecodePayload(&p); err != nil {
		return nil, err
	}

	coop, err := cooperative.NewCooperative(p.Name, p.RegistrationNumber, p.Email, p.Phone, p.Address, p.ParentOrganizationID)
	if err != nil {
		return nil, err
	}
	coopAccount, err := identity.NewAccount(identity.RoleCooperative, p.Email, p.Phone, p.CooperativePasswordHash, coop.Name, "", uuidPtr(coop.ID))
	if err != nil {
		return nil, fmt.Errorf("cooperative account: %w", err)
	}
	leader, err := identity.NewAccount(identity.RoleLeader, p.Leader.Email, p.Leader.Phone, p.Leader.PasswordHash, p.Leader.FirstName, p.Leader.LastName, uuidPtr(coop.ID))
	if err != nil {
		return nil, fmt.Errorf("leader account: %w", err)
	}
	assignment := cooperative.NewLeaderAssignment(coop.ID, leader.ID, p.LeaderTitle)
	// registration fee is recorded at the amount the gateway collected
	tx := settlement.NewSuccessfulTransaction(intent.Reference, settlement.TransactionTypeFee, v.Amount,
		uuidPtr(coopAccount.ID), uuidPtr(coop.ID), "Cooperative registration fee")

	err = s.uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
		if err := w.CreateCooperative(ctx, coop); err != nil {
			return err
		}
		if err := w.CreateAccount(ctx, coopAccount); err != nil {
			return err
		}
		if err := w.CreateAccount(ctx, leader); err != nil {
			return err
		}
		if err := w.CreateLeaderAssignment(ctx, assignment); err != nil {
			return err
		}
		if err := w.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return w.CompleteIntent(ctx, intent.Reference)
	})
	if err != nil {
		return nil, err
	}

	return &settled{
		transactionReference: tx.Reference,
		amount:               tx.Amount,
		cooperativeID:        uuidPtr(coop.ID),
		welcomes: []settlement.Welcome{
			s.welcome(coopAccount, intent.Reference, nil),
			s.welcome(leader, intent.Reference, nil),
		},
	}, nil
}

func (s *Service) settleMemberRegistration(ctx context.Context, intent *settlement.PendingIntent, v *settlement.Verification) (*settled, error) {
	var p settlement.MemberRegistrationPayload
	if err := intent.DecodePayload(&p); err != nil {
		return nil, err
	}

	member, err := identity.NewAccount(identity.RoleMember, p.Member.Email, p.Member.Phone, p.Member.PasswordHash,
		p.Member.FirstName, p.Member.LastName, uuidPtr(p.CooperativeID))
	if err != nil {
		return nil, fmt.Errorf("member account: %w", err)
	}
	base, err := s.feePolicy.RecoverBase(v.Amount)
	if err != nil {
		return nil, fmt.Errorf("recover base amount: %w", err)
	}
	tx := settlement.NewSuccessfulTransaction(intent.Reference, settlement.TransactionTypeFee, base,
		uuidPtr(member.ID), uuidPtr(p.CooperativeID), "Member registration fee")

	err = s.uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
		if err := w.CreateAccount(ctx, member); err != nil {
			return err
		}
		if err := w.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return w.CompleteIntent(ctx, intent.Reference)
	})
	if err != nil {
		return nil, err
	}

	return &settled{
		transactionReference: tx.Reference,
		amount:               base,
		cooperativeID:        uuidPtr(p.CooperativeID),
		member:               member,
	}, nil
}

func (s *Service) settleContribution(ctx context.Context, intent *settlement.PendingIntent) (*settled, error) {
	var p settlement.ContributionPayload
	if err := intent.DecodePayload(&p); err != nil {
		return nil, err
	}

	// contributions store the requested amount, not the gateway total
	contribution, err := cooperative.NewContribution(p.MemberID, p.CooperativeID, p.BaseAmount, intent.Reference, p.Note)
	if err != nil {
		return nil, err
	}
	tx := settlement.NewSuccessfulTransaction(intent.Reference+settlement.ContributionReferenceSuffix,
		settlement.TransactionTypeContribution, p.BaseAmount, uuidPtr(p.MemberID), uuidPtr(p.CooperativeID), "Contribution")

	err = s.uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
		if err := w.CreateContribution(ctx, contribution); err != nil {
			return err
		}
		if err := w.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return w.CompleteIntent(ctx, intent.Reference)
	})
	if err != nil {
		return nil, err
	}

	return &settled{
		transactionReference: tx.Reference,
		amount:               p.BaseAmount,
		cooperativeID:        uuidPtr(p.CooperativeID),
		contributorID:        uuidPtr(p.MemberID),
	}, nil
}

func (s *Service) welcome(account *identity.Account, reference string, va *identity.VirtualAccount) settlement.Welcome {
	return settlement.Welcome{
		Role:           account.Role,
		Recipient:      account.Email,
		Name:           account.FullName(),
		DashboardURL:   s.dashboardURL + account.Role.DashboardPath(),
		VirtualAccount: va,
		Reference:      reference,
	}
}
