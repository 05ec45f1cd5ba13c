package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmailSender is a mock implementation of EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

// MockSMSSender is a mock implementation of SMSSender
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, to, body string) error {
	return m.Called(ctx, to, body).Error(0)
}

type memoryLogs struct {
	mu      sync.Mutex
	entries []LogEntry
	err     error
}

func (l *memoryLogs) Record(_ context.Context, entry LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entry)
	return nil
}

func TestFormatNaira(t *testing.T) {
	assert.Equal(t, "NGN 5,000.00", FormatNaira(decimal.NewFromInt(5000)))
	assert.Equal(t, "NGN 126,666.67", FormatNaira(decimal.RequireFromString("126666.666")))
	assert.Equal(t, "NGN 0.00", FormatNaira(decimal.Zero))
}

func TestDispatcher_PaymentConfirmation(t *testing.T) {
	email := new(MockEmailSender)
	sms := new(MockSMSSender)
	logs := &memoryLogs{}
	d := NewDispatcher(DispatcherConfig{Email: email, SMS: sms, Logs: logs})

	email.On("SendEmail", mock.Anything, "ada@example.com", "Payment received",
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, "NGN 10,000.00") })).Return(nil)
	sms.On("SendSMS", mock.Anything, "08031234567",
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, "CTB-01") })).Return(errors.New("provider down"))

	msg := settlement.PaymentConfirmation{
		Channel:   settlement.ChannelEmail,
		Recipient: "ada@example.com",
		Name:      "Ada",
		Amount:    decimal.NewFromInt(10000),
		Reference: "CTB-01",
		Kind:      settlement.KindContribution,
	}
	require.NoError(t, d.SendPaymentConfirmation(context.Background(), msg))

	msg.Channel = settlement.ChannelSMS
	msg.Recipient = "08031234567"
	assert.Error(t, d.SendPaymentConfirmation(context.Background(), msg))

	require.Len(t, logs.entries, 2)
	assert.Equal(t, LogStatusSent, logs.entries[0].Status)
	assert.Equal(t, LogStatusFailed, logs.entries[1].Status)
	assert.Equal(t, "provider down", logs.entries[1].Error)
	assert.Equal(t, templatePaymentConfirmation, logs.entries[1].Template)
	email.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestDispatcher_Welcome(t *testing.T) {
	email := new(MockEmailSender)
	logs := &memoryLogs{err: errors.New("log table missing")}
	d := NewDispatcher(DispatcherConfig{Email: email, Logs: logs})

	email.On("SendEmail", mock.Anything, "lead@coop.ng", "Welcome to CooPay",
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "https://app.coopay.ng/dashboard/member") &&
				strings.Contains(body, "0123456789")
		})).Return(nil)

	err := d.SendWelcome(context.Background(), settlement.Welcome{
		Role:         identity.RoleMember,
		Recipient:    "lead@coop.ng",
		Name:         "Bola",
		DashboardURL: "https://app.coopay.ng/dashboard/member",
		VirtualAccount: &identity.VirtualAccount{
			AccountNumber: "0123456789",
			BankName:      "Wema Bank",
			AccountName:   "COOPAY/BOLA",
		},
		Reference: "MEM-01",
	})
	assert.NoError(t, err, "a failing log store never fails the dispatch")
	email.AssertExpectations(t)
}

func TestDispatcher_UnconfiguredChannel(t *testing.T) {
	logs := &memoryLogs{}
	d := NewDispatcher(DispatcherConfig{Logs: logs})

	err := d.SendPaymentConfirmation(context.Background(), settlement.PaymentConfirmation{
		Channel:   settlement.ChannelSMS,
		Recipient: "08031234567",
		Amount:    decimal.NewFromInt(1),
	})
	assert.ErrorContains(t, err, "sms channel")
	require.Len(t, logs.entries, 1)
	assert.Equal(t, LogStatusFailed, logs.entries[0].Status)
}

func TestHTTPSMSSender(t *testing.T) {
	t.Run("posts form with api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sms/send", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get("apikey"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "2348031234567", r.PostForm.Get("to"))
			assert.Equal(t, "CooPay", r.PostForm.Get("from"))
			_, _ = w.Write([]byte(`{"status":"ok","message":"queued"}`))
		}))
		defer server.Close()

		s := NewHTTPSMSSender(SMSConfig{BaseURL: server.URL, APIKey: "secret", SenderID: "CooPay"})
		assert.NoError(t, s.SendSMS(context.Background(), "0803 123 4567", "hi"))
	})

	t.Run("provider error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"error","message":"insufficient balance"}`))
		}))
		defer server.Close()

		s := NewHTTPSMSSender(SMSConfig{BaseURL: server.URL})
		assert.ErrorContains(t, s.SendSMS(context.Background(), "+2348031234567", "hi"), "insufficient balance")
	})

	t.Run("non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		s := NewHTTPSMSSender(SMSConfig{BaseURL: server.URL})
		assert.ErrorContains(t, s.SendSMS(context.Background(), "2348031234567", "hi"), "status 401")
	})
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "2348031234567", normalizePhone("08031234567"))
	assert.Equal(t, "2348031234567", normalizePhone("+234 803-123-4567"))
	assert.Equal(t, "2348031234567", normalizePhone("2348031234567"))
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{})
	assert.ErrorContains(t, s.SendEmail(context.Background(), "a@b.c", "s", "b"), "smtp host")

	msg := string(buildMessage("noreply@coopay.ng", "CooPay", "ada@example.com", "Payment received", "<p>hi</p>"))
	assert.Contains(t, msg, "From: CooPay <noreply@coopay.ng>\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=\"utf-8\"\r\n\r\n<p>hi</p>")
}
