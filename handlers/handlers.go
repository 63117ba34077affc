package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"farmpulse-service/auth"
	"farmpulse-service/image"
	"farmpulse-service/llm"
	"farmpulse-service/metrics"
	"farmpulse-service/models"
	"farmpulse-service/service"
	"farmpulse-service/telemetry"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// TelemetryGateway is the realtime device-state collaborator.
type TelemetryGateway interface {
	ReadState(ctx context.Context) (*models.DeviceState, error)
	WriteCommand(ctx context.Context, pumpStatus bool) (bool, error)
	Configured() bool
}

// AuthProvider forwards credential flows to the external identity service.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (*auth.User, error)
	SignIn(ctx context.Context, email, password string) (*auth.User, error)
	Configured() bool
}

// Handlers represents the HTTP handlers
type Handlers struct {
	service         *service.Service
	telemetry       TelemetryGateway
	authClient      AuthProvider
	tokens          *auth.TokenService
	llm             llm.Client
	storeConfigured bool
}

// NewHandlers creates new HTTP handlers
func NewHandlers(svc *service.Service, gateway TelemetryGateway, authClient AuthProvider, tokens *auth.TokenService, llmClient llm.Client, storeConfigured bool) *Handlers {
	return &Handlers{
		service:         svc,
		telemetry:       gateway,
		authClient:      authClient,
		tokens:          tokens,
		llm:             llmClient,
		storeConfigured: storeConfigured,
	}
}

// AnalyzeImage handles one plant-image diagnosis call. Model output that
// could not be parsed still answers 200 with the raw response; only a
// missing/undecodable upload or an unreachable inference collaborator
// produce error statuses.
func (h *Handlers) AnalyzeImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No file uploaded"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No file selected"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	userID := c.GetString("user_id")

	outcome, err := h.service.Analyze(c.Request.Context(), userID, data)
	if err != nil {
		if errors.Is(err, image.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	if outcome.Failure != nil {
		c.JSON(http.StatusOK, outcome.Failure)
		return
	}
	c.JSON(http.StatusOK, outcome.Result)
}

// GetHistory lists the caller's scan history.
func (h *Handlers) GetHistory(c *gin.Context) {
	userID := c.GetString("user_id")

	records, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": records})
}

// GetSensorData returns the current device snapshot. Unlike the dashboard,
// this endpoint fails rather than invent numbers.
func (h *Handlers) GetSensorData(c *gin.Context) {
	state, err := h.telemetry.ReadState(c.Request.Context())
	if err != nil {
		metrics.TelemetryRequestTotal.WithLabelValues("read", "error").Inc()
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	metrics.TelemetryRequestTotal.WithLabelValues("read", "ok").Inc()

	c.JSON(http.StatusOK, gin.H{"success": true, "data": state})
}

// GetDashboard returns the snapshot used to render the dashboard. When the
// telemetry store is down it substitutes a fixed placeholder so the page
// still renders; displayed numbers are then not live.
func (h *Handlers) GetDashboard(c *gin.Context) {
	var snapshot models.DeviceState

	state, err := h.telemetry.ReadState(c.Request.Context())
	if err != nil {
		log.Warnf("Telemetry unavailable for dashboard, using placeholder: %v", err)
		metrics.TelemetryRequestTotal.WithLabelValues("read", "error").Inc()
		snapshot = telemetry.PlaceholderState()
	} else {
		metrics.TelemetryRequestTotal.WithLabelValues("read", "ok").Inc()
		snapshot = *state
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": models.DashboardData{
		SoilMoisture: snapshot.SoilMoisture,
		Temperature:  snapshot.Temperature,
		Humidity:     snapshot.Humidity,
		PumpStatus:   snapshot.PumpStatus,
		PumpMode:     snapshot.PumpMode(),
	}})
}

// PumpControlRequest is the pump command body.
type PumpControlRequest struct {
	PumpStatus *bool `json:"pump_status" binding:"required"`
}

// PumpControl writes a pump command to the telemetry store.
func (h *Handlers) PumpControl(c *gin.Context) {
	var req PumpControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	ack, err := h.telemetry.WriteCommand(c.Request.Context(), *req.PumpStatus)
	if err != nil {
		metrics.TelemetryRequestTotal.WithLabelValues("write", "error").Inc()
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	metrics.TelemetryRequestTotal.WithLabelValues("write", "ok").Inc()

	c.JSON(http.StatusOK, gin.H{"success": true, "pump_status": ack})
}

// HealthCheck reports collaborator configuration. It re-evaluates on every
// call and never fails.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:             "healthy",
		GroqConfigured:     h.llm.Configured(),
		SupabaseConfigured: h.storeConfigured,
		FirebaseConfigured: h.telemetry.Configured(),
		Timestamp:          time.Now().Format(time.RFC3339),
	})
}

// credentialsRequest is the signup/login body.
type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup forwards registration to the identity collaborator and mints a
// session token on success.
func (h *Handlers) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if !h.authClient.Configured() {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Supabase not configured"})
		return
	}

	user, err := h.authClient.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": req.Email, "token": token, "message": "Account created successfully"})
}

// Login forwards authentication to the identity collaborator and mints a
// session token on success.
func (h *Handlers) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if !h.authClient.Configured() {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Supabase not configured"})
		return
	}

	user, err := h.authClient.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": req.Email, "token": token})
}
