package handler

import (
	"context"
	"strconv"

	appallocation "github.com/coopay/backend/internal/application/allocation"
	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/infrastructure/notification"
	"github.com/coopay/backend/internal/interfaces/http/dto"
	"github.com/coopay/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AllocationAdmin reads and replaces the allocation table
type AllocationAdmin interface {
	Current(ctx context.Context) (allocation.Config, error)
	Update(ctx context.Context, shares allocation.Shares, updatedBy string) (allocation.Config, error)
	History(ctx context.Context, limit int) ([]allocation.Config, error)
	Report(ctx context.Context, q appallocation.ReportQuery) (*appallocation.Report, error)
}

// NotificationLog lists dispatch attempts for a reference
type NotificationLog interface {
	ListByReference(ctx context.Context, reference string) ([]notification.LogEntry, error)
}

// AdminHandler serves the dashboard's administrative endpoints
type AdminHandler struct {
	BaseHandler
	allocations   AllocationAdmin
	settler       Settler
	notifications NotificationLog
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(allocations AllocationAdmin, settler Settler, notifications NotificationLog) *AdminHandler {
	return &AdminHandler{
		allocations:   allocations,
		settler:       settler,
		notifications: notifications,
	}
}

// GetAllocationConfig godoc
//
//	@Summary	Current allocation table
//	@Tags		admin
//	@Security	BearerAuth
//	@Success	200	{object}	dto.Response{data=dto.AllocationConfigResponse}
//	@Router		/admin/allocation-config [get]
func (h *AdminHandler) GetAllocationConfig(c *gin.Context) {
	cfg, err := h.allocations.Current(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAllocationConfigResponse(cfg))
}

// UpdateAllocationConfig godoc
//
//	@Summary	Replace the allocation table with a new version
//	@Tags		admin
//	@Security	BearerAuth
//	@Param		request	body		dto.SharesRequest	true	"Five percentages summing to 100"
//	@Success	200		{object}	dto.Response{data=dto.AllocationConfigResponse}
//	@Failure	422		{object}	dto.Response
//	@Router		/admin/allocation-config [put]
func (h *AdminHandler) UpdateAllocationConfig(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SharesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cfg, err := h.allocations.Update(c.Request.Context(), allocation.Shares{
		ApexFunds:               req.ApexFunds,
		PlatformFunds:           req.PlatformFunds,
		CooperativeShare:        req.CooperativeShare,
		LeaderShare:             req.LeaderShare,
		ParentOrganizationShare: req.ParentOrganizationShare,
	}, p.AccountID.String())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAllocationConfigResponse(cfg))
}

// AllocationHistory godoc
//
//	@Summary	Previous allocation tables, newest first
//	@Tags		admin
//	@Security	BearerAuth
//	@Param		limit	query		int	false	"Number of versions"	default(20)
//	@Success	200		{object}	dto.Response{data=[]dto.AllocationConfigResponse}
//	@Router		/admin/allocation-config/history [get]
func (h *AdminHandler) AllocationHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	versions, err := h.allocations.History(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.AllocationConfigResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, toAllocationConfigResponse(v))
	}
	h.Success(c, out)
}

// AllocationReport godoc
//
//	@Summary	Allocate a period's successful revenue
//	@Tags		admin
//	@Security	BearerAuth
//	@Param		source	query		string	true	"REGISTRATION or CONTRIBUTION"
//	@Param		from	query		string	true	"Start date (YYYY-MM-DD), inclusive"
//	@Param		to		query		string	true	"End date (YYYY-MM-DD), exclusive"
//	@Param		mode	query		string	false	"exact assigns the rounding remainder to the last share"
//	@Success	200		{object}	dto.Response{data=dto.AllocationReportResponse}
//	@Router		/admin/allocation-report [get]
func (h *AdminHandler) AllocationReport(c *gin.Context) {
	var q dto.AllocationReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	report, err := h.allocations.Report(c.Request.Context(), appallocation.ReportQuery{
		Source: appallocation.Source(q.Source),
		From:   q.From,
		To:     q.To,
		Exact:  q.Mode == "exact",
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entries := make([]dto.AllocationEntryResponse, 0, len(report.Allocation.Entries))
	for _, e := range report.Allocation.Entries {
		entries = append(entries, dto.AllocationEntryResponse{
			Stakeholder: e.Stakeholder.String(),
			Percentage:  e.Percentage,
			Amount:      e.Amount,
		})
	}
	h.Success(c, dto.AllocationReportResponse{
		ConfigVersion:    report.ConfigVersion,
		Source:           string(report.Source),
		From:             report.From,
		To:               report.To,
		TransactionCount: report.TransactionCount,
		Gross:            report.Allocation.Gross,
		Allocated:        report.Allocation.Total(),
		Exact:            report.Exact,
		Entries:          entries,
	})
}

// Reconcile godoc
//
//	@Summary	Release a stale claim and settle again
//	@Tags		admin
//	@Security	BearerAuth
//	@Param		reference	path		string	true	"Payment reference"
//	@Success	200			{object}	dto.Response{data=dto.SettlementResponse}
//	@Failure	404,409,503	{object}	dto.Response
//	@Router		/admin/settlements/{reference}/reconcile [post]
func (h *AdminHandler) Reconcile(c *gin.Context) {
	res, err := h.settler.Reconcile(c.Request.Context(), c.Param("reference"))
	h.respondSettlement(c, res, err)
}

// ListNotifications godoc
//
//	@Summary	Notification attempts for a payment
//	@Tags		admin
//	@Security	BearerAuth
//	@Param		reference	path		string	true	"Payment reference"
//	@Success	200			{object}	dto.Response{data=[]dto.NotificationLogResponse}
//	@Router		/admin/settlements/{reference}/notifications [get]
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	entries, err := h.notifications.ListByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.NotificationLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NotificationLogResponse{
			Channel:   string(e.Channel),
			Recipient: e.Recipient,
			Template:  e.Template,
			Status:    string(e.Status),
			Error:     e.Error,
			CreatedAt: e.CreatedAt,
		})
	}
	h.Success(c, out)
}

func toAllocationConfigResponse(cfg allocation.Config) dto.AllocationConfigResponse {
	return dto.AllocationConfigResponse{
		Version:                 cfg.Version,
		ApexFunds:               cfg.Shares.ApexFunds,
		PlatformFunds:           cfg.Shares.PlatformFunds,
		CooperativeShare:        cfg.Shares.CooperativeShare,
		LeaderShare:             cfg.Shares.LeaderShare,
		ParentOrganizationShare: cfg.Shares.ParentOrganizationShare,
		UpdatedBy:               cfg.UpdatedBy,
		CreatedAt:               cfg.CreatedAt,
	}
}
