package models

import "time"

// Severity values the diagnosis schema allows. "None" is only valid for a
// healthy verdict.
const (
	SeverityNone   = "None"
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// DiagnosisResult is the structured verdict for one analyzed plant image.
// The model is asked for one of two JSON shapes (diseased or healthy);
// optional fields stay nil and render as JSON null so that incomplete but
// parseable model output is still surfaced to the caller.
type DiagnosisResult struct {
	DiseaseDetected *bool   `json:"disease_detected"`
	DiseaseName     *string `json:"disease_name,omitempty"`
	Confidence      *int    `json:"confidence"`
	CropType        *string `json:"crop_type"`
	ProbableCause   *string `json:"probable_cause,omitempty"`
	Description     *string `json:"description,omitempty"`
	Solution        *string `json:"solution,omitempty"`
	Message         *string `json:"message,omitempty"`
	Severity        *string `json:"severity"`
	Timestamp       string  `json:"timestamp"`
}

// DiagnosisFailure is returned when the model answered but its text could
// not be coerced into a DiagnosisResult. It is a soft outcome: the analyze
// call still succeeds and carries the model's verbatim answer.
type DiagnosisFailure struct {
	RawResponse string `json:"raw_response"`
	Error       string `json:"error"`
	Timestamp   string `json:"timestamp"`
}

// NewDiagnosisFailure builds the failure payload for a raw model answer.
func NewDiagnosisFailure(raw string) *DiagnosisFailure {
	return &DiagnosisFailure{
		RawResponse: raw,
		Error:       "Failed to parse JSON response",
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// HistoryRecord is one completed analysis call, success or parse failure,
// keyed by the caller's session identity. Records are append-only.
type HistoryRecord struct {
	ID              int64   `json:"id,omitempty"`
	UserID          string  `json:"user_id"`
	ScanType        string  `json:"scan_type"`
	ParseFailed     bool    `json:"parse_failed"`
	DiseaseDetected *bool   `json:"disease_detected"`
	DiseaseName     *string `json:"disease_name"`
	Confidence      *int    `json:"confidence"`
	CropType        *string `json:"crop_type"`
	ProbableCause   *string `json:"probable_cause"`
	Description     *string `json:"description"`
	Solution        *string `json:"solution"`
	Severity        *string `json:"severity"`
	Timestamp       string  `json:"timestamp"`
}

// DeviceState is a snapshot of the irrigation controller as stored in the
// realtime telemetry database. The service never owns the authoritative
// copy; it reads snapshots and issues merge updates.
type DeviceState struct {
	SoilMoisture float64 `json:"soil_moisture"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	PumpStatus   bool    `json:"pump_status"`
	Read         bool    `json:"read"`
	Write        bool    `json:"write"`
}

// PumpMode derives the controller mode from the read flag. The mode is
// computed at read time and never stored.
func (s DeviceState) PumpMode() string {
	if s.Read {
		return "AUTO"
	}
	return "MANUAL"
}

// DashboardData is the dashboard rendering payload: the device snapshot
// plus the derived pump mode.
type DashboardData struct {
	SoilMoisture float64 `json:"soil_moisture"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	PumpStatus   bool    `json:"pump_status"`
	PumpMode     string  `json:"pump_mode"`
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports collaborator configuration. It is a capability
// probe and never fails.
type HealthResponse struct {
	Status             string `json:"status"`
	GroqConfigured     bool   `json:"groq_configured"`
	SupabaseConfigured bool   `json:"supabase_configured"`
	FirebaseConfigured bool   `json:"firebase_configured"`
	Timestamp          string `json:"timestamp"`
}
