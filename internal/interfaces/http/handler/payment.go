package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	appsettlement "github.com/coopay/backend/internal/application/settlement"
	"github.com/coopay/backend/internal/domain/fee"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/interfaces/http/dto"
	"github.com/coopay/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settler drives a reference through the settlement state machine
type Settler interface {
	Settle(ctx context.Context, reference string) (*appsettlement.Result, error)
	Reconcile(ctx context.Context, reference string) (*appsettlement.Result, error)
	Status(ctx context.Context, reference string) (*appsettlement.Result, error)
}

// Initializer starts gateway checkouts
type Initializer interface {
	Quote(amount decimal.Decimal) (fee.Calculation, error)
	InitializeCooperativeRegistration(ctx context.Context, req appsettlement.CooperativeRegistration) (*appsettlement.Checkout, error)
	InitializeMemberRegistration(ctx context.Context, req appsettlement.MemberRegistration) (*appsettlement.Checkout, error)
	InitializeContribution(ctx context.Context, req appsettlement.ContributionRequest) (*appsettlement.Checkout, error)
}

// RedirectURLs are the frontend pages the payment callback lands on
type RedirectURLs struct {
	Success string
	Failure string
	Pending string
}

// PaymentHandler serves checkout initialization, the gateway redirect and
// polling
type PaymentHandler struct {
	BaseHandler
	settler     Settler
	initializer Initializer
	redirects   RedirectURLs
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(settler Settler, initializer Initializer, redirects RedirectURLs) *PaymentHandler {
	return &PaymentHandler{
		settler:     settler,
		initializer: initializer,
		redirects:   redirects,
	}
}

// QuoteFee godoc
//
//	@Summary	Quote the processing fee for an amount
//	@Tags		payments
//	@Param		amount	query		string	true	"Base amount in naira"
//	@Success	200		{object}	dto.Response{data=dto.FeeQuote}
//	@Failure	400		{object}	dto.Response
//	@Router		/payments/fees/quote [get]
func (h *PaymentHandler) QuoteFee(c *gin.Context) {
	amount, err := fee.ParseAmount(c.Query("amount"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	calc, err := h.initializer.Quote(amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toFeeQuote(calc))
}

// InitializeCooperativeRegistration godoc
//
//	@Summary	Start the registration payment of a cooperative
//	@Tags		payments
//	@Param		request	body		dto.CooperativeRegistrationRequest	true	"Cooperative and leader details"
//	@Success	201		{object}	dto.Response{data=dto.CheckoutResponse}
//	@Failure	400,409	{object}	dto.Response
//	@Router		/payments/cooperatives [post]
func (h *PaymentHandler) InitializeCooperativeRegistration(c *gin.Context) {
	var req dto.CooperativeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	in := appsettlement.CooperativeRegistration{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		Email:              req.Email,
		Phone:              req.Phone,
		Address:            req.Address,
		Password:           req.Password,
		Leader: appsettlement.LeaderDetails{
			FirstName: req.Leader.FirstName,
			LastName:  req.Leader.LastName,
			Email:     req.Leader.Email,
			Phone:     req.Leader.Phone,
			Password:  req.Leader.Password,
			Title:     req.Leader.Title,
		},
	}
	if req.ParentOrganizationID != "" {
		id := uuid.MustParse(req.ParentOrganizationID)
		in.ParentOrganizationID = &id
	}

	checkout, err := h.initializer.InitializeCooperativeRegistration(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCheckoutResponse(checkout))
}

// InitializeMemberRegistration godoc
//
//	@Summary	Start the registration payment of a member
//	@Tags		payments
//	@Param		request	body		dto.MemberRegistrationRequest	true	"Member details"
//	@Success	201		{object}	dto.Response{data=dto.CheckoutResponse}
//	@Failure	400,409,422	{object}	dto.Response
//	@Router		/payments/members [post]
func (h *PaymentHandler) InitializeMemberRegistration(c *gin.Context) {
	var req dto.MemberRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	checkout, err := h.initializer.InitializeMemberRegistration(c.Request.Context(), appsettlement.MemberRegistration{
		CooperativeID: uuid.MustParse(req.CooperativeID),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Password:      req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCheckoutResponse(checkout))
}

// InitializeContribution godoc
//
//	@Summary	Start a contribution payment
//	@Tags		payments
//	@Param		request	body		dto.ContributionRequest	true	"Member and amount"
//	@Success	201		{object}	dto.Response{data=dto.CheckoutResponse}
//	@Failure	400,404	{object}	dto.Response
//	@Router		/payments/contributions [post]
func (h *PaymentHandler) InitializeContribution(c *gin.Context) {
	var req dto.ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	checkout, err := h.initializer.InitializeContribution(c.Request.Context(), appsettlement.ContributionRequest{
		MemberID: uuid.MustParse(req.MemberID),
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCheckoutResponse(checkout))
}

// Callback godoc
//
//	@Summary	Gateway redirect target; settles and forwards the payer
//	@Tags		payments
//	@Param		reference	query	string	true	"Payment reference"
//	@Success	302
//	@Router		/payments/callback [get]
func (h *PaymentHandler) Callback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref")
	}
	if strings.TrimSpace(reference) == "" {
		c.Redirect(http.StatusFound, withQuery(h.redirects.Failure, "", "Missing payment reference"))
		return
	}

	res, err := h.settler.Settle(c.Request.Context(), reference)
	switch {
	case err == nil && res.Status == settlement.IntentStatusCompleted:
		c.Redirect(http.StatusFound, withQuery(h.redirects.Success, reference, ""))
	case errors.Is(err, settlement.ErrSettlementInProgress) || settlement.IsUndetermined(err):
		c.Redirect(http.StatusFound, withQuery(h.redirects.Pending, reference, ""))
	case res != nil && res.Status == settlement.IntentStatusFailed:
		c.Redirect(http.StatusFound, withQuery(h.redirects.Failure, reference, res.Message))
	case err == nil:
		// still pending at the gateway
		c.Redirect(http.StatusFound, withQuery(h.redirects.Pending, reference, ""))
	default:
		_, message := classifyError(err)
		_ = c.Error(err)
		c.Redirect(http.StatusFound, withQuery(h.redirects.Failure, reference, message))
	}
}

// Verify godoc
//
//	@Summary	Poll a payment; settles it if the gateway has an outcome
//	@Tags		payments
//	@Param		reference	path		string	true	"Payment reference"
//	@Success	200			{object}	dto.Response{data=dto.SettlementResponse}
//	@Success	202			{object}	dto.Response{data=dto.SettlementResponse}
//	@Failure	404,409		{object}	dto.Response
//	@Router		/payments/{reference}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	res, err := h.settler.Settle(c.Request.Context(), c.Param("reference"))
	h.respondSettlement(c, res, err)
}

// GetStatus godoc
//
//	@Summary	Stored status of a payment, without contacting the gateway
//	@Tags		payments
//	@Param		reference	path		string	true	"Payment reference"
//	@Success	200			{object}	dto.Response{data=dto.SettlementResponse}
//	@Failure	404			{object}	dto.Response
//	@Router		/payments/{reference} [get]
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	res, err := h.settler.Status(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettlementResponse(res))
}

func withQuery(base, reference, message string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if reference != "" {
		q.Set("reference", reference)
	}
	if message != "" {
		q.Set("message", message)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func toFeeQuote(calc fee.Calculation) dto.FeeQuote {
	return dto.FeeQuote{
		BaseAmount:    calc.BaseAmount,
		Fee:           calc.Fee,
		TotalAmount:   calc.TotalAmount,
		IsFeeWaived:   calc.IsFeeWaived,
		IsFeeCapped:   calc.IsFeeCapped,
		FeePercentage: calc.FeePercentage,
	}
}

func toCheckoutResponse(co *appsettlement.Checkout) dto.CheckoutResponse {
	return dto.CheckoutResponse{
		Reference:        co.Reference,
		AuthorizationURL: co.AuthorizationURL,
		AccessCode:       co.AccessCode,
		Fee:              toFeeQuote(co.Fee),
	}
}

func toSettlementResponse(res *appsettlement.Result) dto.SettlementResponse {
	return dto.SettlementResponse{
		Reference:            res.Reference,
		Kind:                 res.Kind.String(),
		Status:               res.Status.String(),
		AlreadyProcessed:     res.AlreadyProcessed,
		Amount:               res.Amount,
		TransactionReference: res.TransactionReference,
		Message:              res.Message,
	}
}
