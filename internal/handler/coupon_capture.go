package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/capture"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/ledger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/scheduler"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/settings"
)

var couponOrderFields = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"valid_until":    "valid_until",
	"discount_value": "discount_value",
	"code":           "code",
}

type CouponCaptureHandler struct {
	Capture   *capture.Orchestrator
	Scheduler *scheduler.Scheduler
	Settings  *settings.Service
	Ledger    *ledger.Ledger
	Logger    *zap.Logger
	// Guard runs before every route, typically auth.RequireRole.
	Guard gin.HandlerFunc
}

func (h *CouponCaptureHandler) Register(r *gin.Engine) {
	group := r.Group("/api/coupon-capture")
	if h.Guard != nil {
		group.Use(h.Guard)
	}
	group.POST("/sync/all", h.syncAll)
	group.POST("/sync/:platform", h.syncPlatform)
	group.POST("/check-expired", h.checkExpired)
	group.POST("/verify-active", h.verifyActive)
	group.GET("/stats", h.stats)
	group.GET("/logs", h.logs)
	group.GET("/cron-status", h.cronStatus)
	group.POST("/cron/capture/run", h.runCapture)
	group.POST("/cron/:task/:action", h.controlTask)
	group.GET("/settings", h.getSettings)
	group.PUT("/settings", h.updateSettings)
	group.POST("/toggle-auto-capture", h.toggleAutoCapture)
	group.GET("/coupons", h.listCoupons)
	group.POST("/coupons/batch", h.batchAction)
	group.PUT("/coupons/:id/expire", h.expireCoupon)
	group.PUT("/coupons/:id/reactivate", h.reactivateCoupon)
	group.POST("/coupons/:id/verify", h.verifyCoupon)
	group.PUT("/coupons/:id/approve", h.approveCoupon)
	group.PUT("/coupons/:id/reject", h.rejectCoupon)
	group.GET("/pending", h.listPending)
}

func (h *CouponCaptureHandler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}

// @Summary Capture all enabled platforms
// @Tags coupon-capture
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/coupon-capture/sync/all [post]
func (h *CouponCaptureHandler) syncAll(c *gin.Context) {
	var (
		res capture.CaptureAllResult
		err error
	)
	if h.Scheduler != nil {
		res, err = h.Scheduler.RunManualCapture(c.Request.Context())
	} else {
		res, err = h.Capture.CaptureAll(c.Request.Context())
	}
	if err != nil {
		h.warn("capture all failed", err)
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Capture one platform
// @Tags coupon-capture
// @Param platform path string true "platform id"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/coupon-capture/sync/{platform} [post]
func (h *CouponCaptureHandler) syncPlatform(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Param("platform")))
	var (
		res capture.PlatformResult
		err error
	)
	if h.Scheduler != nil {
		res, err = h.Scheduler.RunPlatformCapture(c.Request.Context(), name)
	} else {
		res, err = h.Capture.CapturePlatform(c.Request.Context(), name)
	}
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Deactivate expired coupons now
// @Tags coupon-capture
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/check-expired [post]
func (h *CouponCaptureHandler) checkExpired(c *gin.Context) {
	var (
		res capture.ExpirationResult
		err error
	)
	if h.Scheduler != nil {
		res, err = h.Scheduler.RunExpirationNow(c.Request.Context())
	} else {
		res, err = h.Capture.CheckExpiredCoupons(c.Request.Context())
	}
	if err != nil {
		h.warn("expiration sweep failed", err)
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

type verifyActiveRequest struct {
	CouponIDs []string `json:"coupon_ids"`
}

// @Summary Verify active coupons against their source
// @Tags coupon-capture
// @Param body body verifyActiveRequest false "optional coupon ids"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/coupon-capture/verify-active [post]
func (h *CouponCaptureHandler) verifyActive(c *gin.Context) {
	var req verifyActiveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	ids := cleanStrings(req.CouponIDs)
	var (
		res capture.VerificationResult
		err error
	)
	if h.Scheduler != nil {
		res, err = h.Scheduler.RunVerificationNow(c.Request.Context(), ids)
	} else {
		res, err = h.Capture.VerifyActiveCoupons(c.Request.Context(), ids)
	}
	if err != nil {
		h.warn("verification sweep failed", err)
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Capture statistics
// @Tags coupon-capture
// @Param days query int false "window in days (default 7)"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/stats [get]
func (h *CouponCaptureHandler) stats(c *gin.Context) {
	res, err := h.Capture.GetStats(c.Request.Context(), intQuery(c, "days", 7))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary List sync runs
// @Tags coupon-capture
// @Param platform query string false "platform"
// @Param sync_type query string false "capture|expiration|verification"
// @Param status query string false "running|completed|failed"
// @Param limit query int false "page size"
// @Param page query int false "1-based page"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/logs [get]
func (h *CouponCaptureHandler) logs(c *gin.Context) {
	page, err := h.Ledger.FindRecent(c.Request.Context(), intQuery(c, "limit", 50), ledger.Filters{
		Platform: c.Query("platform"),
		SyncType: c.Query("sync_type"),
		Status:   c.Query("status"),
	}, intQuery(c, "page", 1))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, page.Logs, map[string]any{
		"total":       page.Total,
		"page":        page.Page,
		"limit":       page.Limit,
		"total_pages": page.TotalPages,
	})
}

// @Summary Scheduler status
// @Tags coupon-capture
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/cron-status [get]
func (h *CouponCaptureHandler) cronStatus(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusServiceUnavailable, "scheduler disabled", nil)
		return
	}
	Ok(c, h.Scheduler.Status(), nil)
}

// @Summary Run the capture task now
// @Tags coupon-capture
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/coupon-capture/cron/capture/run [post]
func (h *CouponCaptureHandler) runCapture(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusServiceUnavailable, "scheduler disabled", nil)
		return
	}
	res, err := h.Scheduler.RunManualCapture(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Start or stop a scheduled task
// @Tags coupon-capture
// @Param task path string true "capture|expiration|verification"
// @Param action path string true "start|stop"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/cron/{task}/{action} [post]
func (h *CouponCaptureHandler) controlTask(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusServiceUnavailable, "scheduler disabled", nil)
		return
	}
	task := c.Param("task")
	var err error
	switch c.Param("action") {
	case "start":
		err = h.Scheduler.StartTask(c.Request.Context(), task)
	case "stop":
		err = h.Scheduler.StopTask(task)
	default:
		Error(c, http.StatusBadRequest, "action must be start or stop", nil)
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, h.Scheduler.Status()[task], nil)
}

// @Summary Get capture settings
// @Tags coupon-capture
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/settings [get]
func (h *CouponCaptureHandler) getSettings(c *gin.Context) {
	cfg, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, cfg, nil)
}

// @Summary Update capture settings
// @Tags coupon-capture
// @Param body body settings.Patch true "fields to change"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/settings [put]
func (h *CouponCaptureHandler) updateSettings(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	cfg, err := h.Settings.Update(c.Request.Context(), patch)
	if err != nil {
		Fail(c, err)
		return
	}
	if patch.SchedulingChanged() {
		h.reschedule(c)
	}
	Ok(c, cfg, nil)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Enable, disable or flip automatic capture
// @Tags coupon-capture
// @Param body body toggleRequest false "explicit state; omitted flips"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/toggle-auto-capture [post]
func (h *CouponCaptureHandler) toggleAutoCapture(c *gin.Context) {
	var req toggleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	var (
		cfg models.CouponSettings
		err error
	)
	if req.Enabled != nil {
		cfg, err = h.Settings.Update(c.Request.Context(), settings.Patch{AutoCaptureEnabled: req.Enabled})
	} else {
		cfg, err = h.Settings.ToggleAutoCapture(c.Request.Context())
	}
	if err != nil {
		Fail(c, err)
		return
	}
	h.reschedule(c)
	Ok(c, cfg, nil)
}

func (h *CouponCaptureHandler) reschedule(c *gin.Context) {
	if h.Scheduler == nil {
		return
	}
	if err := h.Scheduler.RestartCaptureJob(c.Request.Context()); err != nil {
		h.warn("capture job restart failed", err)
	}
}

// @Summary List coupons
// @Tags coupon-capture
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param platform query string false "platform"
// @Param is_active query bool false "active flag"
// @Param pending query bool false "pending approval flag"
// @Param verification_status query string false "active|expired|invalid"
// @Param auto_captured query bool false "auto captured flag"
// @Param search query string false "code or title contains"
// @Param order_by query string false "created_at|updated_at|valid_until|discount_value|code"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/coupons [get]
func (h *CouponCaptureHandler) listCoupons(c *gin.Context) {
	params := repository.ListCouponsParams{
		Limit:              intQuery(c, "limit", 50),
		Offset:             intQuery(c, "offset", 0),
		OrderBy:            parseOrder(c.Query("order_by"), couponOrderFields),
		Asc:                boolQueryPtr(c, "ascending"),
		Platform:           strQueryPtr(c, "platform"),
		IsActive:           boolQueryPtr(c, "is_active"),
		IsPendingApproval:  boolQueryPtr(c, "pending"),
		VerificationStatus: strQueryPtr(c, "verification_status"),
		AutoCaptured:       boolQueryPtr(c, "auto_captured"),
		Search:             strQueryPtr(c, "search"),
	}
	h.respondCoupons(c, params)
}

// @Summary List coupons waiting for approval
// @Tags coupon-capture
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/pending [get]
func (h *CouponCaptureHandler) listPending(c *gin.Context) {
	h.respondCoupons(c, repository.ListCouponsParams{
		Limit:             intQuery(c, "limit", 50),
		Offset:            intQuery(c, "offset", 0),
		IsPendingApproval: boolPtr(true),
		Platform:          strQueryPtr(c, "platform"),
	})
}

func (h *CouponCaptureHandler) respondCoupons(c *gin.Context, params repository.ListCouponsParams) {
	items, total, err := h.Capture.ListCoupons(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

type batchRequest struct {
	Action    string   `json:"action"`
	CouponIDs []string `json:"coupon_ids"`
}

// @Summary Expire or reactivate many coupons
// @Tags coupon-capture
// @Param body body batchRequest true "action (expire|activate) and ids"
// @Success 200 {object} apiResponse
// @Router /api/coupon-capture/coupons/batch [post]
func (h *CouponCaptureHandler) batchAction(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	ids := cleanStrings(req.CouponIDs)
	if len(ids) == 0 {
		Error(c, http.StatusBadRequest, "coupon_ids required", nil)
		return
	}
	var apply func(id string) error
	switch req.Action {
	case "expire":
		apply = func(id string) error {
			_, err := h.Capture.ExpireCoupon(c.Request.Context(), id)
			return err
		}
	case "activate":
		apply = func(id string) error {
			_, err := h.Capture.ReactivateCoupon(c.Request.Context(), id)
			return err
		}
	default:
		Error(c, http.StatusBadRequest, "action must be expire or activate", nil)
		return
	}
	updated, failed := 0, []string{}
	for _, id := range ids {
		if err := apply(id); err != nil {
			failed = append(failed, id)
			continue
		}
		updated++
	}
	Ok(c, gin.H{"action": req.Action, "updated": updated, "failed": failed}, nil)
}

// @Summary Expire a coupon
// @Tags coupon-capture
// @Param id path string true "coupon id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/coupon-capture/coupons/{id}/expire [put]
func (h *CouponCaptureHandler) expireCoupon(c *gin.Context) {
	h.respondCoupon(c)(h.Capture.ExpireCoupon(c.Request.Context(), c.Param("id")))
}

// @Summary Reactivate a coupon
// @Tags coupon-capture
// @Param id path string true "coupon id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/coupon-capture/coupons/{id}/reactivate [put]
func (h *CouponCaptureHandler) reactivateCoupon(c *gin.Context) {
	h.respondCoupon(c)(h.Capture.ReactivateCoupon(c.Request.Context(), c.Param("id")))
}

// @Summary Approve a pending coupon
// @Tags coupon-capture
// @Param id path string true "coupon id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/coupon-capture/coupons/{id}/approve [put]
func (h *CouponCaptureHandler) approveCoupon(c *gin.Context) {
	h.respondCoupon(c)(h.Capture.ApproveCoupon(c.Request.Context(), c.Param("id")))
}

// @Summary Reject a pending coupon
// @Tags coupon-capture
// @Param id path string true "coupon id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/coupon-capture/coupons/{id}/reject [put]
func (h *CouponCaptureHandler) rejectCoupon(c *gin.Context) {
	h.respondCoupon(c)(h.Capture.RejectCoupon(c.Request.Context(), c.Param("id")))
}

func (h *CouponCaptureHandler) respondCoupon(c *gin.Context) func(models.Coupon, error) {
	return func(item models.Coupon, err error) {
		if err != nil {
			Fail(c, err)
			return
		}
		Ok(c, item, nil)
	}
}

// @Summary Verify one coupon against its source
// @Tags coupon-capture
// @Param id path string true "coupon id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/coupon-capture/coupons/{id}/verify [post]
func (h *CouponCaptureHandler) verifyCoupon(c *gin.Context) {
	res, err := h.Capture.VerifyCoupon(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}
