package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared"
	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/coopay/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), Options{})
	require.NoError(t, err)
	require.NoError(t, db.DB.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func newIntent(t *testing.T, reference string) *settlement.PendingIntent {
	t.Helper()
	intent, err := settlement.NewPendingIntent(reference, settlement.KindContribution,
		settlement.ContributionPayload{MemberID: uuid.New(), CooperativeID: uuid.New(), BaseAmount: decimal.NewFromInt(10000)},
		decimal.NewFromInt(10000), decimal.NewFromInt(10250), "ada@example.com")
	require.NoError(t, err)
	return intent
}

func TestIntentRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIntentRepository(db)
	ctx := context.Background()

	intent := newIntent(t, "CTB-01")
	require.NoError(t, repo.Create(ctx, intent))
	assert.ErrorIs(t, repo.Create(ctx, newIntent(t, "CTB-01")), settlement.ErrDuplicateReference)

	t.Run("finds by reference with amounts and payload intact", func(t *testing.T) {
		found, err := repo.FindByReference(ctx, "CTB-01")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, settlement.IntentStatusPending, found.Status)
		assert.True(t, decimal.NewFromInt(10250).Equal(found.TotalAmount))

		var payload settlement.ContributionPayload
		require.NoError(t, found.DecodePayload(&payload))
		assert.True(t, decimal.NewFromInt(10000).Equal(payload.BaseAmount))
	})

	t.Run("missing reference returns nil", func(t *testing.T) {
		found, err := repo.FindByReference(ctx, "CTB-404")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("conditional claim succeeds once", func(t *testing.T) {
		require.NoError(t, repo.Transition(ctx, "CTB-01", settlement.IntentStatusPending, settlement.IntentStatusProcessing, ""))
		err := repo.Transition(ctx, "CTB-01", settlement.IntentStatusPending, settlement.IntentStatusProcessing, "")
		assert.ErrorIs(t, err, settlement.ErrClaimLost)
	})

	t.Run("failing records reason and completion time", func(t *testing.T) {
		require.NoError(t, repo.Transition(ctx, "CTB-01", settlement.IntentStatusProcessing, settlement.IntentStatusFailed, "gateway status abandoned"))
		found, err := repo.FindByReference(ctx, "CTB-01")
		require.NoError(t, err)
		assert.Equal(t, settlement.IntentStatusFailed, found.Status)
		assert.Equal(t, "gateway status abandoned", found.FailureReason)
		assert.NotNil(t, found.CompletedAt)
	})

	t.Run("terminal intents never move", func(t *testing.T) {
		err := repo.Transition(ctx, "CTB-01", settlement.IntentStatusFailed, settlement.IntentStatusPending, "")
		assert.ErrorIs(t, err, settlement.ErrClaimLost)
	})

	t.Run("unknown reference", func(t *testing.T) {
		err := repo.Transition(ctx, "CTB-404", settlement.IntentStatusPending, settlement.IntentStatusProcessing, "")
		assert.ErrorIs(t, err, settlement.ErrIntentNotFound)
	})
}

func TestIntentRepository_FindStale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIntentRepository(db)
	ctx := context.Background()

	for _, ref := range []string{"CTB-OLD", "CTB-OLDER", "CTB-FRESH", "CTB-PENDING"} {
		require.NoError(t, repo.Create(ctx, newIntent(t, ref)))
	}
	for _, ref := range []string{"CTB-OLD", "CTB-OLDER", "CTB-FRESH"} {
		require.NoError(t, repo.Transition(ctx, ref, settlement.IntentStatusPending, settlement.IntentStatusProcessing, ""))
	}

	now := time.Now()
	age := func(ref string, d time.Duration) {
		require.NoError(t, db.Model(&models.PendingIntentModel{}).
			Where("reference = ?", ref).Update("updated_at", now.Add(-d)).Error)
	}
	age("CTB-OLD", 20*time.Minute)
	age("CTB-OLDER", time.Hour)
	age("CTB-PENDING", time.Hour)

	cutoff := now.Add(-10 * time.Minute)
	refs, err := repo.FindStale(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"CTB-OLDER", "CTB-OLD"}, refs)

	refs, err = repo.FindStale(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"CTB-OLDER"}, refs)
}

func TestUnitOfWork(t *testing.T) {
	db := setupTestDB(t)
	intents := NewIntentRepository(db)
	accounts := NewAccountRepository(db)
	cooperatives := NewCooperativeRepository(db)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	intent := newIntent(t, "COOP-01")
	require.NoError(t, intents.Create(ctx, intent))
	require.NoError(t, intents.Transition(ctx, "COOP-01", settlement.IntentStatusPending, settlement.IntentStatusProcessing, ""))

	coop, err := cooperative.NewCooperative("Ikeja Traders", "rc-1234", "info@ikeja.coop", "", "Ikeja", nil)
	require.NoError(t, err)
	coopID := coop.ID
	leader, err := identity.NewAccount(identity.RoleLeader, "Lead@Ikeja.coop", "08031234567", "hash", "Bola", "Ade", &coopID)
	require.NoError(t, err)

	t.Run("error rolls back every write", func(t *testing.T) {
		err := uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
			require.NoError(t, w.CreateCooperative(ctx, coop))
			require.NoError(t, w.CreateAccount(ctx, leader))
			return errors.New("leader assignment failed")
		})
		require.Error(t, err)

		exists, err := cooperatives.ExistsByRegistrationNumber(ctx, "RC-1234")
		require.NoError(t, err)
		assert.False(t, exists)
		found, err := accounts.FindByID(ctx, leader.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("commit writes all records and completes the intent", func(t *testing.T) {
		err := uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
			if err := w.CreateCooperative(ctx, coop); err != nil {
				return err
			}
			if err := w.CreateAccount(ctx, leader); err != nil {
				return err
			}
			if err := w.CreateLeaderAssignment(ctx, cooperative.NewLeaderAssignment(coop.ID, leader.ID, "")); err != nil {
				return err
			}
			tx := settlement.NewSuccessfulTransaction("COOP-01", settlement.TransactionTypeFee, decimal.NewFromInt(50000), &leader.ID, &coopID, "registration")
			if err := w.CreateTransaction(ctx, tx); err != nil {
				return err
			}
			return w.CompleteIntent(ctx, "COOP-01")
		})
		require.NoError(t, err)

		found, err := intents.FindByReference(ctx, "COOP-01")
		require.NoError(t, err)
		assert.Equal(t, settlement.IntentStatusCompleted, found.Status)

		account, err := accounts.FindByID(ctx, leader.ID)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "lead@ikeja.coop", account.Email)
		assert.Equal(t, &coopID, account.CooperativeID)
	})

	t.Run("duplicate email maps to already registered", func(t *testing.T) {
		dup, err := identity.NewAccount(identity.RoleMember, "lead@ikeja.coop", "", "hash", "X", "Y", &coopID)
		require.NoError(t, err)
		err = uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
			return w.CreateAccount(ctx, dup)
		})
		assert.ErrorIs(t, err, settlement.ErrDuplicateRegistrant)
	})

	t.Run("completing an unclaimed intent fails", func(t *testing.T) {
		err := uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
			return w.CompleteIntent(ctx, "COOP-01")
		})
		assert.ErrorIs(t, err, settlement.ErrClaimLost)
	})
}

func TestTransactionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seed := func(ref string, txType settlement.TransactionType, status settlement.TransactionStatus, amount string, at time.Time) {
		tx := settlement.NewSuccessfulTransaction(ref, txType, decimal.RequireFromString(amount), nil, nil, "")
		tx.Status = status
		tx.CreatedAt = at
		tx.UpdatedAt = at
		require.NoError(t, uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
			return w.CreateTransaction(ctx, tx)
		}))
	}
	seed("COOP-1", settlement.TransactionTypeFee, settlement.TransactionStatusSuccessful, "50000", now.Add(-time.Hour))
	seed("MEM-1", settlement.TransactionTypeFee, settlement.TransactionStatusSuccessful, "5175.50", now.Add(-time.Hour))
	seed("MEM-2", settlement.TransactionTypeFee, settlement.TransactionStatusFailed, "5175", now.Add(-time.Hour))
	seed("CTB-1-TXN", settlement.TransactionTypeContribution, settlement.TransactionStatusSuccessful, "10000", now.Add(-time.Hour))
	seed("MEM-OLD", settlement.TransactionTypeFee, settlement.TransactionStatusSuccessful, "5000", now.AddDate(0, -2, 0))
	seed("DIRECT-1", settlement.TransactionTypeContribution, settlement.TransactionStatusPending, "700", now)

	t.Run("sums successful transactions in the window", func(t *testing.T) {
		total, count, err := repo.SumSuccessful(ctx, settlement.TransactionTypeFee, now.AddDate(0, 0, -1), now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.True(t, decimal.RequireFromString("55175.50").Equal(total), total.String())
	})

	t.Run("empty window sums to zero", func(t *testing.T) {
		total, count, err := repo.SumSuccessful(ctx, settlement.TransactionTypeWithdrawal, now.AddDate(0, 0, -1), now)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.True(t, total.IsZero())
	})

	t.Run("direct payment transition is conditional", func(t *testing.T) {
		require.NoError(t, repo.TransitionStatus(ctx, "DIRECT-1", settlement.TransactionStatusPending, settlement.TransactionStatusSuccessful))
		err := repo.TransitionStatus(ctx, "DIRECT-1", settlement.TransactionStatusPending, settlement.TransactionStatusFailed)
		assert.ErrorIs(t, err, settlement.ErrClaimLost)

		tx, err := repo.FindByReference(ctx, "DIRECT-1")
		require.NoError(t, err)
		assert.Equal(t, settlement.TransactionStatusSuccessful, tx.Status)
		assert.True(t, decimal.NewFromInt(700).Equal(tx.Amount))
	})
}

func TestAccountRepository_SaveVirtualAccount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	member, err := identity.NewAccount(identity.RoleMember, "ada@example.com", "", "hash", "Ada", "Obi", nil)
	require.NoError(t, err)
	require.NoError(t, uow.Execute(ctx, func(ctx context.Context, w settlement.Writer) error {
		return w.CreateAccount(ctx, member)
	}))

	exists, err := repo.ExistsByEmail(ctx, " ADA@example.com ")
	require.NoError(t, err)
	assert.True(t, exists)

	va := identity.VirtualAccount{AccountNumber: "9930000001", BankName: "Wema Bank", AccountName: "COOPAY/ADA OBI", CustomerCode: "CUS_x1"}
	require.NoError(t, repo.SaveVirtualAccount(ctx, member.ID, va))
	assert.ErrorIs(t, repo.SaveVirtualAccount(ctx, uuid.New(), va), shared.ErrNotFound)

	found, err := repo.FindByID(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, found.VirtualAccount)
	assert.Equal(t, va, *found.VirtualAccount)
}

func TestAllocationConfigRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAllocationConfigRepository(db)
	ctx := context.Background()

	current, err := repo.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	shares := allocation.Shares{
		ApexFunds:               decimal.NewFromInt(40),
		PlatformFunds:           decimal.NewFromInt(20),
		CooperativeShare:        decimal.NewFromInt(20),
		LeaderShare:             decimal.RequireFromString("12.5"),
		ParentOrganizationShare: decimal.RequireFromString("7.5"),
	}
	v1, err := allocation.NewConfig(1, shares, "system")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, v1))

	v2, err := v1.Next(shares, "admin@coopay.ng")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, v2))

	conflict, err := v1.Next(shares, "other@coopay.ng")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Append(ctx, conflict), allocation.ErrVersionConflict)

	current, err = repo.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Version)
	assert.Equal(t, "admin@coopay.ng", current.UpdatedBy)
	assert.True(t, decimal.RequireFromString("12.5").Equal(current.Shares.LeaderShare))
	assert.NoError(t, current.Shares.Validate())

	history, err := repo.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
	assert.Equal(t, 1, history[1].Version)
}

func TestNotificationLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationLogRepository(db)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, repo.Record(ctx, notification.LogEntry{
		Channel: settlement.ChannelEmail, Recipient: "ada@example.com", Template: "welcome",
		Reference: "MEM-1", Status: notification.LogStatusSent, CreatedAt: base,
	}))
	require.NoError(t, repo.Record(ctx, notification.LogEntry{
		Channel: settlement.ChannelSMS, Recipient: "2348031234567", Template: "payment_confirmation",
		Reference: "MEM-1", Status: notification.LogStatusFailed, Error: "provider down", CreatedAt: base.Add(time.Second),
	}))

	entries, err := repo.ListByReference(ctx, "MEM-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, settlement.ChannelEmail, entries[0].Channel)
	assert.Equal(t, notification.LogStatusFailed, entries[1].Status)
	assert.Equal(t, "provider down", entries[1].Error)
}
