package elevenlabs

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

// Client is a thin HTTP client for the ElevenLabs text-to-speech API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		BaseURL: cfg.Narration.BaseURL,
		APIKey:  cfg.Narration.APIKey,
		HTTPClient: &http.Client{
			Timeout: cfg.Narration.Timeout(),
		},
		Logger: log,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize renders text to MP3 bytes with the given provider voice id.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.BaseURL, voiceID)

	body, err := sonic.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("text-to-speech request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("voice_id", voiceID))
		return nil, fmt.Errorf("text-to-speech failed with status %d", resp.StatusCode)
	}

	return audio, nil
}

// Quota reports the remaining character budget on the account.
type Quota struct {
	CharacterCount int `json:"character_count"`
	CharacterLimit int `json:"character_limit"`
}

func (c *Client) Quota(ctx context.Context) (*Quota, error) {
	endpoint := fmt.Sprintf("%s/user/subscription", c.BaseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quota request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var q Quota
	if err := sonic.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &q, nil
}
