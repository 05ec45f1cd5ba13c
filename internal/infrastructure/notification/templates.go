package notification

import (
	"bytes"
	"html/template"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	templatePaymentConfirmation = "payment_confirmation"
	templateWelcome             = "welcome"
)

var printer = message.NewPrinter(language.English)

// FormatNaira renders an amount as "NGN 5,000.00"
func FormatNaira(amount decimal.Decimal) string {
	return printer.Sprintf("NGN %v", number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
}

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "payment_confirmation"}}<p>Hello {{.Name}},</p>
<p>Your {{.Purpose}} payment of <strong>{{.Amount}}</strong> was received.</p>
<p>Reference: <code>{{.Reference}}</code></p>
<p>Thank you for saving with your cooperative.</p>{{end}}
{{define "welcome"}}<p>Welcome {{.Name}},</p>
<p>Your {{.Role}} account is ready. Sign in at <a href="{{.DashboardURL}}">{{.DashboardURL}}</a>.</p>
{{if .VirtualAccount}}<p>Your dedicated account for contributions:<br>
{{.VirtualAccount.BankName}} {{.VirtualAccount.AccountNumber}} ({{.VirtualAccount.AccountName}})</p>{{end}}
<p>Registration reference: <code>{{.Reference}}</code></p>{{end}}
`))

type confirmationView struct {
	Name      string
	Purpose   string
	Amount    string
	Reference string
}

func purpose(kind settlement.Kind) string {
	switch kind {
	case settlement.KindCooperativeRegistration:
		return "cooperative registration"
	case settlement.KindMemberRegistration:
		return "membership registration"
	default:
		return "contribution"
	}
}

func renderConfirmationEmail(msg settlement.PaymentConfirmation) (subject, body string, err error) {
	var buf bytes.Buffer
	err = emailTemplates.ExecuteTemplate(&buf, templatePaymentConfirmation, confirmationView{
		Name:      msg.Name,
		Purpose:   purpose(msg.Kind),
		Amount:    FormatNaira(msg.Amount),
		Reference: msg.Reference,
	})
	return "Payment received", buf.String(), err
}

func renderConfirmationSMS(msg settlement.PaymentConfirmation) string {
	return printer.Sprintf("Your %s payment of %s was received. Ref: %s",
		purpose(msg.Kind), FormatNaira(msg.Amount), msg.Reference)
}

func renderWelcomeEmail(msg settlement.Welcome) (subject, body string, err error) {
	var buf bytes.Buffer
	err = emailTemplates.ExecuteTemplate(&buf, templateWelcome, msg)
	return "Welcome to CooPay", buf.String(), err
}
