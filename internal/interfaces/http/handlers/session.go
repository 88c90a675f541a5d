// internal/interfaces/http/handlers/session.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/session"
)

// SessionHandler handles sale session endpoints
type SessionHandler struct {
	manager *session.Manager
	config  *config.Config
}

// NewSessionHandler creates a new session handler. The manager is shared
// with the expiry sweeper so both sides use the same locks.
func NewSessionHandler(manager *session.Manager, cfg *config.Config) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		config:  cfg,
	}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req session.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.manager.CreateSession(c.Request.Context(), &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Session created successfully",
		"data":    sess,
	})
}

// GetSessions handles GET /sessions, listing the open tabs of an owner
func (h *SessionHandler) GetSessions(c *gin.Context) {
	userID, ok := parseQueryUint(c, "user_id")
	if !ok {
		return
	}
	deviceID, ok := parseQueryUint(c, "device_id")
	if !ok {
		return
	}

	sessions, err := h.manager.GetActiveSessions(c.Request.Context(), userID, deviceID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	canCreate, err := h.manager.CanCreateNewSession(c.Request.Context(), userID, deviceID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sessions retrieved successfully",
		"data": gin.H{
			"sessions":       sessions,
			"can_create_new": canCreate,
			"max_concurrent": h.manager.GetMaxConcurrentSessions(),
		},
	})
}

// GetSession handles GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sess, err := h.manager.GetSession(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session retrieved successfully",
		"data":    sess,
	})
}

// GetSnapshot handles GET /sessions/:id/snapshot, serving the cached
// snapshot when available for fast tab reloads
func (h *SessionHandler) GetSnapshot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if cached := h.manager.CachedSnapshot(c.Request.Context(), id); cached != "" {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	sess, err := h.manager.GetSession(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", []byte(sess.SnapshotJSON))
}

// UpdateSession handles PUT /sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req session.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.manager.UpdateSession(c.Request.Context(), id, &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session updated successfully",
		"data":    result,
	})
}

// SwitchTo handles POST /sessions/:id/switch
func (h *SessionHandler) SwitchTo(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sess, err := h.manager.SwitchTo(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Switched to session",
		"data":    sess,
	})
}

// AddItem handles POST /sessions/:id/items
func (h *SessionHandler) AddItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req session.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.manager.AddItem(c.Request.Context(), id, &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added successfully",
		"data":    result,
	})
}

// UpdateItem handles PUT /sessions/:id/items/:itemId
func (h *SessionHandler) UpdateItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var req session.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.manager.UpdateItem(c.Request.Context(), id, itemID, &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item updated successfully",
		"data":    result,
	})
}

// RemoveItem handles DELETE /sessions/:id/items/:itemId
func (h *SessionHandler) RemoveItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	result, err := h.manager.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed successfully",
		"data":    result,
	})
}

// Recalculate handles POST /sessions/:id/recalculate
func (h *SessionHandler) Recalculate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.manager.RecalculateTotals(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Totals recalculated successfully",
		"data":    result,
	})
}

// Suspend handles POST /sessions/:id/suspend
func (h *SessionHandler) Suspend(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sess, err := h.manager.Suspend(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session suspended successfully",
		"data":    sess,
	})
}

// Resume handles POST /sessions/:id/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sess, err := h.manager.Resume(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session resumed successfully",
		"data":    sess,
	})
}

// Complete handles POST /sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req session.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.manager.Complete(c.Request.Context(), id, &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session completed successfully",
		"data":    sess,
	})
}

// Close handles DELETE /sessions/:id, cancelling the tab
func (h *SessionHandler) Close(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	saveState := c.DefaultQuery("save_state", "true") == "true"

	sess, err := h.manager.Close(c.Request.Context(), id, saveState)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session closed successfully",
		"data":    sess,
	})
}

// Validate handles GET /sessions/:id/validate
func (h *SessionHandler) Validate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.manager.Validate(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session validated",
		"data":    report,
	})
}

// CleanupExpired handles POST /sessions/cleanup, expiring idle tabs past
// the configured threshold
func (h *SessionHandler) CleanupExpired(c *gin.Context) {
	cutoff := time.Now().UTC().Add(-h.config.Session.ExpiryThreshold)

	count, err := h.manager.CleanupExpired(c.Request.Context(), cutoff)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cleanup completed",
		"data":    gin.H{"expired": count},
	})
}

// respondSessionError maps domain errors to HTTP status codes
func respondSessionError(c *gin.Context, err error) {
	var (
		validation *session.ValidationError
		notFound   *session.NotFoundError
		duplicate  *session.DuplicateTabNameError
		limit      *session.ConcurrencyLimitError
		stale      *session.StaleSessionError
		stock      *session.InsufficientStockError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &limit):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &stock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// parseIDParam parses a uint path parameter, responding 400 on failure
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(value), true
}

// parseQueryUint parses a required uint query parameter
func parseQueryUint(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return 0, false
	}
	return uint(value), true
}
