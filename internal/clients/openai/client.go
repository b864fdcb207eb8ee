package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/hausview/panotour/internal/config"
	"go.uber.org/zap"
)

// Client calls the OpenAI chat-completions API to draft tour narration
// scripts. It is optional: the narration orchestrator falls back to templated
// scripts when no client is configured or the call fails.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		BaseURL: cfg.ScriptGen.BaseURL,
		APIKey:  cfg.ScriptGen.APIKey,
		Model:   cfg.ScriptGen.Model,
		HTTPClient: &http.Client{
			Timeout: cfg.ScriptGen.Timeout(),
		},
		Logger: log,
	}
}

// TourScript is the structured narration script for one tour run.
type TourScript struct {
	Intro string       `json:"intro"`
	Rooms []RoomScript `json:"rooms"`
	Outro string       `json:"outro"`
}

type RoomScript struct {
	RoomName  string `json:"room_name"`
	Narration string `json:"narration"`
}

// PropertyDigest is the slice of property metadata the prompt needs.
type PropertyDigest struct {
	Title      string  `json:"title"`
	Address    string  `json:"address"`
	Price      int64   `json:"price"`
	Type       string  `json:"type"`
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	SquareFeet int     `json:"square_feet"`
}

type RoomDigest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateTourScript asks the model for an intro, one narration per room and
// an outro, as strict JSON.
func (c *Client) GenerateTourScript(ctx context.Context, prop PropertyDigest, rooms []RoomDigest) (*TourScript, error) {
	roomsJSON, err := sonic.MarshalString(rooms)
	if err != nil {
		return nil, fmt.Errorf("marshal rooms: %w", err)
	}

	prompt := fmt.Sprintf(`Create a warm, professional real estate tour narration script.

Property: %s
Address: %s
Price: $%d
Type: %s
Beds: %d | Baths: %.1f
Square Feet: %d

Rooms in order:
%s

Requirements: an inviting introduction, one narration of 15-20 seconds per room
highlighting its features, and a closing call-to-action.

Return ONLY valid JSON in this exact format:
{"intro": "...", "rooms": [{"room_name": "...", "narration": "..."}], "outro": "..."}`,
		prop.Title, prop.Address, prop.Price, prop.Type,
		prop.Bedrooms, prop.Bathrooms, prop.SquareFeet, roomsJSON)

	body, err := sonic.Marshal(chatRequest{
		Model:          c.Model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    0.8,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("chat completion request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(respBody)))
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := sonic.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	var script TourScript
	if err := sonic.Unmarshal([]byte(chat.Choices[0].Message.Content), &script); err != nil {
		return nil, fmt.Errorf("unmarshal script: %w", err)
	}
	return &script, nil
}
