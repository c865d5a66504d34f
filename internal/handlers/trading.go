package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"memetrader/internal/models"
	"memetrader/internal/validator"
	sol "memetrader/pkg/solana"
)

// PositionReader exposes the manager state the API reports on.
type PositionReader interface {
	Positions() []models.Position
	Summary() map[string]interface{}
	SetEmergencyStop(stop bool)
	EmergencyStopped() bool
}

// SignalValidator scores a token on demand.
type SignalValidator interface {
	Validate(ctx context.Context, tokenAddress, sourceChannel string) validator.ValidationResult
	ValidateBatch(ctx context.Context, addresses []string, sourceChannel string) []validator.ValidationResult
}

// EndpointReporter exposes RPC endpoint health.
type EndpointReporter interface {
	Snapshot() []sol.EndpointStats
}

// ControlPublisher forwards control commands to the worker process.
type ControlPublisher interface {
	Publish(message interface{}) error
}

// Handler serves the control API over the trading engine.
type Handler struct {
	manager   PositionReader
	validator SignalValidator
	endpoints EndpointReporter
	control   ControlPublisher
}

func New(manager PositionReader, v SignalValidator, endpoints EndpointReporter, control ControlPublisher) *Handler {
	return &Handler{manager: manager, validator: v, endpoints: endpoints, control: control}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": h.manager.Positions()})
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary := h.manager.Summary()
	summary["emergency_stop"] = h.manager.EmergencyStopped()
	c.JSON(http.StatusOK, summary)
}

type validateRequest struct {
	TokenAddresses []string `json:"token_addresses" binding:"required,min=1"`
	Source         string   `json:"source"`
}

func (h *Handler) ValidateTokens(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	results := h.validator.ValidateBatch(c.Request.Context(), req.TokenAddresses, req.Source)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type emergencyStopRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) EmergencyStop(c *gin.Context) {
	var req emergencyStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.manager.SetEmergencyStop(*req.Active)

	if h.control != nil {
		if err := h.control.Publish(gin.H{"action": "emergency_stop", "active": *req.Active}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to forward emergency stop to worker"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"emergency_stop": *req.Active})
}

func (h *Handler) GetEndpoints(c *gin.Context) {
	if h.endpoints == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint ranker not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": h.endpoints.Snapshot()})
}
