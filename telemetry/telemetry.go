package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"farmpulse-service/models"

	"github.com/apex/log"
)

// ErrNotConfigured is returned when no realtime database URL was provided.
var ErrNotConfigured = errors.New("telemetry store not configured")

// snapshot mirrors the field names the irrigation controller writes to the
// realtime database.
type snapshot struct {
	Soil  float64 `json:"soil"`
	Temp  float64 `json:"temp"`
	Hum   float64 `json:"hum"`
	Pump  bool    `json:"pump"`
	Read  bool    `json:"read"`
	Write bool    `json:"write"`
}

// Client talks to the Firebase Realtime Database REST API. The service
// only reads snapshots and issues merge updates; the device owns the
// authoritative state.
type Client struct {
	databaseURL string
	authToken   string
	rootPath    string
	httpClient  *http.Client
}

// NewClient creates a telemetry client for the given database URL and root
// path (the well-known key the controller publishes under).
func NewClient(databaseURL, authToken, rootPath string) *Client {
	return &Client{
		databaseURL: strings.TrimSuffix(databaseURL, "/"),
		authToken:   authToken,
		rootPath:    rootPath,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether a database URL is present.
func (c *Client) Configured() bool {
	return c.databaseURL != ""
}

func (c *Client) stateURL() string {
	url := fmt.Sprintf("%s/%s.json", c.databaseURL, c.rootPath)
	if c.authToken != "" {
		url += "?auth=" + c.authToken
	}
	return url
}

// ReadState fetches the current device snapshot.
func (c *Client) ReadState(ctx context.Context) (*models.DeviceState, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.stateURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telemetry store returned status %d", resp.StatusCode)
	}

	// A missing node decodes as JSON null.
	var snap *snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("no telemetry data at %s", c.rootPath)
	}

	return &models.DeviceState{
		SoilMoisture: snap.Soil,
		Temperature:  snap.Temp,
		Humidity:     snap.Hum,
		PumpStatus:   snap.Pump,
		Read:         snap.Read,
		Write:        snap.Write,
	}, nil
}

// WriteCommand issues a pump command as a merge update: only the pump flag
// and the write acknowledgment change, every other field is left untouched.
// Last writer wins; there is no read-modify-write cycle.
func (c *Client) WriteCommand(ctx context.Context, pumpStatus bool) (bool, error) {
	if !c.Configured() {
		return false, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]any{"pump": pumpStatus, "write": true})
	if err != nil {
		return false, fmt.Errorf("failed to marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.stateURL(), bytes.NewBuffer(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send pump command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("telemetry store returned status %d", resp.StatusCode)
	}

	log.Infof("Pump command written: pump=%t", pumpStatus)
	return pumpStatus, nil
}

// PlaceholderState is the fixed snapshot the dashboard substitutes when the
// telemetry store cannot be reached, trading displayed accuracy for page
// availability. The dedicated sensor endpoint never uses it.
func PlaceholderState() models.DeviceState {
	return models.DeviceState{
		SoilMoisture: 31,
		Temperature:  25.5,
		Humidity:     61,
		PumpStatus:   false,
		Read:         true,
	}
}
