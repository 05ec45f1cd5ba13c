package cooperative

import (
	"errors"
	"time"

	"github.com/coopay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrContributionAmount = errors.New("cooperative: contribution amount must be positive")

// Contribution is a member's payment into their cooperative. Amount is the
// base amount the member asked to contribute, before gateway fees.
type Contribution struct {
	shared.BaseEntity
	MemberID      uuid.UUID
	CooperativeID uuid.UUID
	Amount        decimal.Decimal
	Reference     string
	Note          string
	ContributedAt time.Time
}

// NewContribution creates a settled contribution record
func NewContribution(memberID, cooperativeID uuid.UUID, amount decimal.Decimal, reference, note string) (*Contribution, error) {
	if !amount.IsPositive() {
		return nil, ErrContributionAmount
	}
	base := shared.NewBaseEntity()
	return &Contribution{
		BaseEntity:    base,
		MemberID:      memberID,
		CooperativeID: cooperativeID,
		Amount:        amount,
		Reference:     reference,
		Note:          note,
		ContributedAt: base.CreatedAt,
	}, nil
}
