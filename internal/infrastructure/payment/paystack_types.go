package payment

import "encoding/json"

// paystackEnvelope is the common response wrapper of every Paystack endpoint
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackCustomer struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

type paystackTransactionData struct {
	ID              int64            `json:"id"`
	Status          string           `json:"status"`
	Reference       string           `json:"reference"`
	Amount          int64            `json:"amount"`
	Currency        string           `json:"currency"`
	Channel         string           `json:"channel"`
	GatewayResponse string           `json:"gateway_response"`
	PaidAt          string           `json:"paid_at"`
	Customer        paystackCustomer `json:"customer"`
}

type paystackCreateCustomerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type paystackDedicatedAccountRequest struct {
	Customer      string `json:"customer"`
	PreferredBank string `json:"preferred_bank,omitempty"`
}

type paystackDedicatedAccountData struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Bank          struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"bank"`
	Customer paystackCustomer `json:"customer"`
}

// paystackWebhookEvent is the body Paystack posts to the webhook URL
type paystackWebhookEvent struct {
	Event string                  `json:"event"`
	Data  paystackTransactionData `json:"data"`
}
