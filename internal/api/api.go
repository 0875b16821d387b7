// Package api exposes the accounting engine over HTTP. Caller identity is
// taken from headers set by the surrounding product's auth layer and
// trusted here.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

type Handler struct {
	DB        *gorm.DB
	Sessions  *db.SessionService
	Captures  *db.CaptureService
	Approvals *db.ApprovalService
	Users     *db.UserService
	Retention *db.RetentionService
}

// Routes mounts all endpoints on r.
func (h *Handler) Routes(r *gin.Engine) {
	apiGroup := r.Group("/api", requireActor)

	apiGroup.POST("/sessions/start", h.StartSession)
	apiGroup.POST("/sessions/stop", h.StopSession)
	apiGroup.GET("/sessions/active", h.ActiveSession)
	apiGroup.GET("/sessions/:id/stats", h.SessionStats)

	apiGroup.POST("/captures", h.RecordCapture)
	apiGroup.POST("/captures/failure", h.RecordFailure)
	apiGroup.DELETE("/captures/:id", h.DeleteCapture)
	apiGroup.POST("/captures/bulk-delete", h.BulkDeleteCaptures)

	apiGroup.POST("/agent/heartbeat", h.AgentHeartbeat)
	apiGroup.POST("/work-items/:id/approve", h.ApproveWorkItem)
	apiGroup.POST("/work-items/:id/reject", h.RejectWorkItem)
	apiGroup.GET("/projects/:id/leaderboard", h.Leaderboard)
	apiGroup.GET("/notifications", h.Notifications)

	apiGroup.POST("/admin/retention/sweep", h.SweepRetention)
}

// requireActor pulls the authenticated actor from request headers.
func requireActor(c *gin.Context) {
	id, err := strconv.ParseUint(c.GetHeader("X-Actor-ID"), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-Actor-ID"})
		return
	}
	role := c.GetHeader("X-Actor-Role")
	if role == "" {
		role = "member"
	}
	c.Set("actor", db.Actor{UserID: uint(id), Role: role})
	c.Next()
}

func actorFrom(c *gin.Context) db.Actor {
	return c.MustGet("actor").(db.Actor)
}

// fail translates a service error into an HTTP response. Conflict responses
// carry the already-active session so the client can offer to stop it.
func fail(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	status := http.StatusInternalServerError

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
		if active := apperr.ActiveSessionOf(err); active != nil {
			body["active_session"] = active
		}
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	case apperr.KindForbidden:
		status = http.StatusForbidden
	}

	c.JSON(status, body)
}

type startRequest struct {
	WorkItemID uint   `json:"work_item_id" binding:"required"`
	Notes      string `json:"notes"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.Sessions.Start(c.Request.Context(), actorFrom(c).UserID, req.WorkItemID, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

type stopRequest struct {
	SessionID uint   `json:"session_id"`
	Notes     string `json:"notes"`
}

func (h *Handler) StopSession(c *gin.Context) {
	var req stopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Sessions.Stop(c.Request.Context(), actorFrom(c).UserID, req.SessionID, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ActiveSession(c *gin.Context) {
	result, err := h.Sessions.Active(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) SessionStats(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	stats, err := h.Captures.SessionStats(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type captureRequest struct {
	SessionID uint `json:"session_id" binding:"required"`
	db.CaptureInput
}

func (h *Handler) RecordCapture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capture, err := h.Captures.Record(c.Request.Context(), actorFrom(c), req.SessionID, req.CaptureInput)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, capture)
}

type failureRequest struct {
	SessionID   uint      `json:"session_id" binding:"required"`
	AttemptedAt time.Time `json:"attempted_at"`
	Reason      string    `json:"reason" binding:"required"`
}

func (h *Handler) RecordFailure(c *gin.Context) {
	var req failureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capture, err := h.Captures.RecordFailure(c.Request.Context(), actorFrom(c),
		req.SessionID, req.AttemptedAt, models.CaptureStatus(req.Reason))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, capture)
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) DeleteCapture(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Captures.Delete(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkDeleteRequest struct {
	IDs    []uint `json:"ids" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) BulkDeleteCaptures(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.Captures.BulkDelete(c.Request.Context(), actorFrom(c), req.IDs, req.Reason)
	c.JSON(http.StatusOK, result)
}

type heartbeatRequest struct {
	Online bool `json:"online"`
}

func (h *Handler) AgentHeartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Users.AgentHeartbeat(c.Request.Context(), actorFrom(c).UserID, req.Online); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) ApproveWorkItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	result, err := h.Approvals.Approve(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RejectWorkItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Approvals.Reject(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Leaderboard(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	members, err := db.Leaderboard(h.DB, id, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) Notifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.Users.Notifications(c.Request.Context(), actorFrom(c).UserID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) SweepRetention(c *gin.Context) {
	if actorFrom(c).Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	result, err := h.Retention.SweepExpired(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
