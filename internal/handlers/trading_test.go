package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memetrader/internal/models"
	"memetrader/internal/validator"
)

type fakeManager struct {
	positions []models.Position
	stopped   bool
}

func (f *fakeManager) Positions() []models.Position { return f.positions }

func (f *fakeManager) Summary() map[string]interface{} {
	return map[string]interface{}{"total": len(f.positions)}
}

func (f *fakeManager) SetEmergencyStop(stop bool) { f.stopped = stop }
func (f *fakeManager) EmergencyStopped() bool     { return f.stopped }

type fakeValidator struct{}

func (fakeValidator) Validate(_ context.Context, token, _ string) validator.ValidationResult {
	return validator.ValidationResult{TokenAddress: token, Score: 80, IsValid: true}
}

func (f fakeValidator) ValidateBatch(ctx context.Context, addresses []string, source string) []validator.ValidationResult {
	out := make([]validator.ValidationResult, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, f.Validate(ctx, a, source))
	}
	return out
}

type fakeControl struct {
	published []interface{}
}

func (f *fakeControl) Publish(message interface{}) error {
	f.published = append(f.published, message)
	return nil
}

func setupTest() (*gin.Engine, *fakeManager, *fakeControl) {
	gin.SetMode(gin.TestMode)
	manager := &fakeManager{positions: []models.Position{{TokenAddress: "Mint111", Status: models.PositionStatusOpen}}}
	control := &fakeControl{}
	h := New(manager, fakeValidator{}, nil, control)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/positions", h.GetPositions)
	r.GET("/summary", h.GetSummary)
	r.GET("/endpoints", h.GetEndpoints)
	r.POST("/validate", h.ValidateTokens)
	r.POST("/emergency-stop", h.EmergencyStop)
	return r, manager, control
}

func TestHealth(t *testing.T) {
	r, _, _ := setupTest()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetPositions(t *testing.T) {
	r, _, _ := setupTest()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/positions", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Positions []models.Position `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Positions, 1)
	assert.Equal(t, "Mint111", body.Positions[0].TokenAddress)
}

func TestGetSummaryIncludesEmergencyFlag(t *testing.T) {
	r, manager, _ := setupTest()
	manager.stopped = true

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/summary", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["emergency_stop"])
}

func TestValidateTokens(t *testing.T) {
	r, _, _ := setupTest()

	t.Run("valid request", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/validate",
			strings.NewReader(`{"token_addresses":["Mint111","Mint222"]}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Results []validator.ValidationResult `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Results, 2)
	})

	t.Run("empty list rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(`{"token_addresses":[]}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEmergencyStop(t *testing.T) {
	r, manager, control := setupTest()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/emergency-stop", strings.NewReader(`{"active":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, manager.stopped)
	require.Len(t, control.published, 1)
}

func TestGetEndpointsUnconfigured(t *testing.T) {
	r, _, _ := setupTest()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/endpoints", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
