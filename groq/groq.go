package groq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// diagnosisPrompt is the fixed instruction contract sent with every image.
// It enumerates the two legal JSON shapes verbatim; the parser's
// expectations and the model's output share this single source of truth.
const diagnosisPrompt = `You are an expert plant pathologist AI assistant. Analyze the provided plant image and identify any diseases present.

Your response must follow this exact structure:

If a disease is detected:
{
  "disease_detected": true,
  "disease_name": "Name of the disease",
  "confidence": 85,
  "crop_type": "Type of crop/plant",
  "probable_cause": "Brief explanation of what causes this disease",
  "description": "Detailed description of the disease symptoms and characteristics",
  "solution": "Comprehensive treatment and prevention measures",
  "severity": "Low/Medium/High"
}

If the plant is healthy:
{
  "disease_detected": false,
  "confidence": 95,
  "crop_type": "Type of crop/plant",
  "message": "Congratulations! Your crop appears to be healthy with no visible signs of disease. The leaves show good color, proper structure, and no spots or discoloration. Keep up the good agricultural practices!",
  "severity": "None"
}

Important guidelines:
- Express confidence as a percentage (0-100)
- Be specific and detailed in your analysis
- Provide actionable solutions
- Use professional agricultural terminology
- Only respond with valid JSON format`

// Prompt returns the full user prompt: the diagnostic contract plus the
// per-image analysis request line.
func Prompt() string {
	return diagnosisPrompt + "\n\nPlease analyze this plant image and identify any diseases."
}

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client is a Groq vision chat-completions client.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a new Groq client with a bounded request timeout.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: groqEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// SourceName identifies this provider in saved scan history
func (c *Client) SourceName() string {
	return "groq"
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// encodeImageToBase64 converts image bytes to a base64 data URL
func encodeImageToBase64(imageData []byte) string {
	base64Data := base64.StdEncoding.EncodeToString(imageData)
	return fmt.Sprintf("data:image/jpeg;base64,%s", base64Data)
}

// AnalyzeImage sends the image and the diagnostic prompt to the vision
// model and returns the raw completion text.
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role: "user",
				Content: []any{
					TextContent{Type: "text", Text: Prompt()},
					ImageContent{Type: "image_url", ImageURL: ImageURL{URL: encodeImageToBase64(imageData)}},
				},
			},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	// Extract the text content from the response
	content := chatResp.Choices[0].Message.Content
	if contentStr, ok := content.(string); ok {
		return contentStr, nil
	}

	// If content is not a string, try to marshal it back to JSON
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}

	return string(contentJSON), nil
}
