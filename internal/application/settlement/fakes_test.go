package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/coopay/backend/internal/domain/cooperative"
	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memoryStore is an in-memory implementation of the persistence ports. Writes
// made through a unit of work are staged and applied only if fn succeeds.
type memoryStore struct {
	mu            sync.Mutex
	intents       map[string]*settlement.PendingIntent
	transactions  map[string]*settlement.Transaction
	accounts      map[uuid.UUID]*identity.Account
	cooperatives  map[uuid.UUID]*cooperative.Cooperative
	leaders       []*cooperative.LeaderAssignment
	contributions []*cooperative.Contribution
	virtual       map[uuid.UUID]identity.VirtualAccount
	writeErr      error
	writePanic    bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		intents:      map[string]*settlement.PendingIntent{},
		transactions: map[string]*settlement.Transaction{},
		accounts:     map[uuid.UUID]*identity.Account{},
		cooperatives: map[uuid.UUID]*cooperative.Cooperative{},
		virtual:      map[uuid.UUID]identity.VirtualAccount{},
	}
}

func (m *memoryStore) Create(_ context.Context, intent *settlement.PendingIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *intent
	m.intents[intent.Reference] = &cp
	return nil
}

func (m *memoryStore) FindByReference(_ context.Context, reference string) (*settlement.PendingIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[reference]
	if !ok {
		return nil, nil
	}
	cp := *intent
	return &cp, nil
}

func (m *memoryStore) Transition(_ context.Context, reference string, from, to settlement.IntentStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(reference, from, to, reason)
}

func (m *memoryStore) transitionLocked(reference string, from, to settlement.IntentStatus, reason string) error {
	intent, ok := m.intents[reference]
	if !ok || intent.Status != from {
		return settlement.ErrClaimLost
	}
	intent.Status = to
	intent.FailureReason = reason
	intent.UpdatedAt = time.Now()
	return nil
}

func (m *memoryStore) status(reference string) settlement.IntentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intents[reference].Status
}

func (m *memoryStore) counts() (coops, accounts, leaders, contributions, transactions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cooperatives), len(m.accounts), len(m.leaders), len(m.contributions), len(m.transactions)
}

func (m *memoryStore) transaction(reference string) *settlement.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[reference]
}

// memoryTransactions exposes the TransactionRepository view of the store
type memoryTransactions struct{ *memoryStore }

func (m memoryTransactions) FindByReference(_ context.Context, reference string) (*settlement.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[reference]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (m memoryTransactions) TransitionStatus(_ context.Context, reference string, from, to settlement.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[reference]
	if !ok || tx.Status != from {
		return settlement.ErrClaimLost
	}
	tx.Status = to
	return nil
}

func (m memoryTransactions) SumSuccessful(_ context.Context, txType settlement.TransactionType, from, to time.Time) (decimal.Decimal, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, n := decimal.Zero, int64(0)
	for _, tx := range m.transactions {
		if tx.Type == txType && tx.Status == settlement.TransactionStatusSuccessful &&
			!tx.CreatedAt.Before(from) && tx.CreatedAt.Before(to) {
			total = total.Add(tx.Amount)
			n++
		}
	}
	return total, n, nil
}

// memoryAccounts exposes the AccountRepository view of the store
type memoryAccounts struct{ *memoryStore }

func (m memoryAccounts) FindByID(_ context.Context, id uuid.UUID) (*identity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (m memoryAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m memoryAccounts) SaveVirtualAccount(_ context.Context, accountID uuid.UUID, va identity.VirtualAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.virtual[accountID] = va
	return nil
}

// memoryCooperatives exposes the cooperative.Repository view of the store
type memoryCooperatives struct{ *memoryStore }

func (m memoryCooperatives) FindByID(_ context.Context, id uuid.UUID) (*cooperative.Cooperative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cooperatives[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m memoryCooperatives) ExistsByRegistrationNumber(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cooperatives {
		if c.RegistrationNumber == number {
			return true, nil
		}
	}
	return false, nil
}

// Execute implements settlement.UnitOfWork
func (m *memoryStore) Execute(ctx context.Context, fn func(ctx context.Context, w settlement.Writer) error) error {
	staged := &stagedWriter{store: m}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writePanic {
		panic("disk on fire")
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, tx := range staged.transactions {
		if _, dup := m.transactions[tx.Reference]; dup {
			return settlement.ErrClaimLost
		}
	}
	for _, ref := range staged.completed {
		if err := m.transitionLocked(ref, settlement.IntentStatusProcessing, settlement.IntentStatusCompleted, ""); err != nil {
			return err
		}
	}
	for _, c := range staged.cooperatives {
		m.cooperatives[c.ID] = c
	}
	for _, a := range staged.accounts {
		m.accounts[a.ID] = a
	}
	m.leaders = append(m.leaders, staged.leaders...)
	m.contributions = append(m.contributions, staged.contributions...)
	for _, tx := range staged.transactions {
		m.transactions[tx.Reference] = tx
	}
	return nil
}

type stagedWriter struct {
	store         *memoryStore
	cooperatives  []*cooperative.Cooperative
	accounts      []*identity.Account
	leaders       []*cooperative.LeaderAssignment
	contributions []*cooperative.Contribution
	transactions  []*settlement.Transaction
	completed     []string
}

func (w *stagedWriter) CreateCooperative(_ context.Context, c *cooperative.Cooperative) error {
	w.cooperatives = append(w.cooperatives, c)
	return nil
}

func (w *stagedWriter) CreateAccount(_ context.Context, a *identity.Account) error {
	w.accounts = append(w.accounts, a)
	return nil
}

func (w *stagedWriter) CreateLeaderAssignment(_ context.Context, l *cooperative.LeaderAssignment) error {
	w.leaders = append(w.leaders, l)
	return nil
}

func (w *stagedWriter) CreateContribution(_ context.Context, c *cooperative.Contribution) error {
	w.contributions = append(w.contributions, c)
	return nil
}

func (w *stagedWriter) CreateTransaction(_ context.Context, tx *settlement.Transaction) error {
	w.transactions = append(w.transactions, tx)
	return nil
}

func (w *stagedWriter) CompleteIntent(_ context.Context, reference string) error {
	w.completed = append(w.completed, reference)
	return nil
}

// MockGateway is a mock implementation of settlement.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initialize(ctx context.Context, req settlement.InitializeRequest) (*settlement.InitializeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.InitializeResponse), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*settlement.Verification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Verification), args.Error(1)
}

// MockNotifier is a mock implementation of settlement.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendPaymentConfirmation(ctx context.Context, msg settlement.PaymentConfirmation) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockNotifier) SendWelcome(ctx context.Context, msg settlement.Welcome) error {
	return m.Called(ctx, msg).Error(0)
}

// MockProvisioner is a mock implementation of settlement.VirtualAccountProvisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) CreateVirtualAccount(ctx context.Context, req settlement.VirtualAccountRequest) (*identity.VirtualAccount, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.VirtualAccount), args.Error(1)
}

// heldLock always reports the key as held by someone else
type heldLock struct{}

func (heldLock) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

// MockHasher is a mock implementation of PasswordHasher
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

// fixedReferences returns the same reference every time
type fixedReferences string

func (f fixedReferences) New(settlement.Kind) string { return string(f) }
