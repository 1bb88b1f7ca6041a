package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appExpiry "github.com/turtacn/FreshGuard/internal/application/expiry"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/internal/interfaces/http/middleware"
)

// ExpiryHandler serves /api/v1/expiry.
type ExpiryHandler struct {
	service appExpiry.Service
	logger  logging.Logger
}

func NewExpiryHandler(service appExpiry.Service, logger logging.Logger) *ExpiryHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ExpiryHandler{service: service, logger: logger.Named("expiry_handler")}
}

// RegisterRoutes mounts the read routes openly and the mutations behind
// RequireAdmin.
func (h *ExpiryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/critical-products", h.CriticalProducts)
	rg.GET("/warning-products", h.WarningProducts)
	rg.GET("/worklist", h.Worklist)
	rg.GET("/status/:productId", h.Status)
	rg.GET("/history", h.History)
	rg.GET("/settings", h.GetSettings)
	rg.GET("/daily-reminder", h.DailyReminder)
	rg.POST("/check-and-notify", h.CheckAndNotify)

	admin := rg.Group("", middleware.RequireAdmin())
	admin.PUT("/settings", h.UpdateSettings)
	admin.POST("/label/:productId", h.Label)
	admin.POST("/remove/:productId", h.Remove)
	admin.POST("/remove-critical/:productId", h.RemoveCritical)
	admin.POST("/deactivate/:productId", h.Deactivate)
	admin.PUT("/update-date/:productId", h.UpdateDate)
	admin.POST("/undo/:actionId", h.Undo)
	admin.POST("/archive", h.Archive)
}

// ---------------------------------------------------------------------------
// Request bodies
// ---------------------------------------------------------------------------

type noteRequest struct {
	Note string `json:"note"`
}

// dateChangeRequest is shared by remove-critical, deactivate and update-date.
type dateChangeRequest struct {
	NewExpiryDate string `json:"newExpiryDate"`
	Note          string `json:"note"`
}

type removeRequest struct {
	ExcludeFromCheck bool   `json:"excludeFromCheck"`
	NewExpiryDate    string `json:"newExpiryDate"`
	Note             string `json:"note"`
}

type settingsRequest struct {
	Enabled      *bool `json:"enabled" binding:"required"`
	WarningDays  *int  `json:"warningDays" binding:"required"`
	CriticalDays *int  `json:"criticalDays" binding:"required"`
}

// bindOptionalJSON accepts an empty body as the zero value, including chunked
// requests whose length is unknown up front.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (h *ExpiryHandler) CriticalProducts(c *gin.Context) {
	items, err := h.service.CriticalProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items, "count": len(items)})
}

func (h *ExpiryHandler) WarningProducts(c *gin.Context) {
	items, err := h.service.WarningProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items, "count": len(items)})
}

func (h *ExpiryHandler) Worklist(c *gin.Context) {
	includeProcessed, err := queryBool(c, "include_processed")
	if err != nil {
		badRequest(c, "include_processed must be a boolean")
		return
	}
	wl, err := h.service.Worklist(c.Request.Context(), appExpiry.WorklistQuery{IncludeProcessed: includeProcessed})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

func (h *ExpiryHandler) Status(c *gin.Context) {
	st, err := h.service.Status(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *ExpiryHandler) History(c *gin.Context) {
	var q appExpiry.HistoryQuery

	date, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	q.Date = date

	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
	}
	if q.LatestPerProduct, err = queryBool(c, "latest"); err != nil {
		badRequest(c, "latest must be a boolean")
		return
	}

	items, err := h.service.History(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *ExpiryHandler) GetSettings(c *gin.Context) {
	s, err := h.service.Settings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (h *ExpiryHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "enabled, warningDays and criticalDays are required")
		return
	}
	s, err := h.service.UpdateSettings(c.Request.Context(), domainExpiry.Settings{
		Enabled:      *req.Enabled,
		WarningDays:  *req.WarningDays,
		CriticalDays: *req.CriticalDays,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("settings updated",
		logging.String("admin_id", middleware.AdminID(c)),
		logging.Bool("enabled", s.Enabled),
		logging.Int("warning_days", s.WarningDays),
		logging.Int("critical_days", s.CriticalDays),
	)
	c.JSON(http.StatusOK, s)
}

func (h *ExpiryHandler) Label(c *gin.Context) {
	var req noteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	entry, err := h.service.Label(c.Request.Context(), appExpiry.LabelRequest{
		ProductID: c.Param("productId"),
		AdminID:   middleware.AdminID(c),
		Note:      req.Note,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *ExpiryHandler) Remove(c *gin.Context) {
	var req removeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	date, err := parseOptionalDate(req.NewExpiryDate)
	if err != nil {
		badRequest(c, "newExpiryDate must be YYYY-MM-DD")
		return
	}
	entry, err := h.service.Remove(c.Request.Context(), appExpiry.RemoveRequest{
		ProductID:        c.Param("productId"),
		AdminID:          middleware.AdminID(c),
		ExcludeFromCheck: req.ExcludeFromCheck,
		NewExpiryDate:    date,
		Note:             req.Note,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *ExpiryHandler) RemoveCritical(c *gin.Context) {
	req, date, ok := h.bindDateChange(c)
	if !ok {
		return
	}
	entry, err := h.service.RemoveCritical(c.Request.Context(), appExpiry.RemoveCriticalRequest{
		ProductID:     c.Param("productId"),
		AdminID:       middleware.AdminID(c),
		NewExpiryDate: date,
		Note:          req.Note,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *ExpiryHandler) Deactivate(c *gin.Context) {
	req, date, ok := h.bindDateChange(c)
	if !ok {
		return
	}
	entry, err := h.service.Deactivate(c.Request.Context(), appExpiry.DeactivateRequest{
		ProductID:     c.Param("productId"),
		AdminID:       middleware.AdminID(c),
		NewExpiryDate: date,
		Note:          req.Note,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// UpdateDate leaves a missing newExpiryDate to the service, which rejects it.
func (h *ExpiryHandler) UpdateDate(c *gin.Context) {
	req, date, ok := h.bindDateChange(c)
	if !ok {
		return
	}
	entry, err := h.service.UpdateExpiryDate(c.Request.Context(), appExpiry.UpdateDateRequest{
		ProductID:     c.Param("productId"),
		AdminID:       middleware.AdminID(c),
		NewExpiryDate: date,
		Note:          req.Note,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *ExpiryHandler) bindDateChange(c *gin.Context) (dateChangeRequest, *time.Time, bool) {
	var req dateChangeRequest
	if !bindOptionalJSON(c, &req) {
		return req, nil, false
	}
	date, err := parseOptionalDate(req.NewExpiryDate)
	if err != nil {
		badRequest(c, "newExpiryDate must be YYYY-MM-DD")
		return req, nil, false
	}
	return req, date, true
}

func (h *ExpiryHandler) Undo(c *gin.Context) {
	res, err := h.service.Undo(c.Request.Context(), appExpiry.UndoRequest{
		ActionID: c.Param("actionId"),
		AdminID:  middleware.AdminID(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------------------------------------------------------------------------
// Notifications and archive
// ---------------------------------------------------------------------------

// DailyReminder answers 200 even when delivery failed; the result carries
// the delivery outcome.
func (h *ExpiryHandler) DailyReminder(c *gin.Context) {
	res, err := h.service.DailyReminder(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ExpiryHandler) CheckAndNotify(c *gin.Context) {
	res, err := h.service.CheckAndNotify(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ExpiryHandler) Archive(c *gin.Context) {
	day, err := domainExpiry.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date is required as YYYY-MM-DD")
		return
	}
	res, err := h.service.ArchiveDay(c.Request.Context(), day)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
