package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iabetor/voicearena/internal/logger"
)

// CartesiaConfig Cartesia 客户端配置。
type CartesiaConfig struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	Version    string
	HTTPClient *http.Client
}

// Cartesia 调用 Cartesia /tts/bytes 接口，输出 44.1kHz 128kbps MP3。
type Cartesia struct {
	api     httpAPI
	modelID string
}

// NewCartesia 创建 Cartesia 客户端。
func NewCartesia(cfg CartesiaConfig) (*Cartesia, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cartesia 需要 api_key: %w", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cartesia.ai"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "sonic-2"
	}
	if cfg.Version == "" {
		cfg.Version = "2024-06-10"
	}
	return &Cartesia{
		api: httpAPI{
			provider: ProviderCartesia,
			baseURL:  cfg.BaseURL,
			client:   httpClientOrDefault(cfg.HTTPClient),
			headers: map[string]string{
				"X-API-Key":        cfg.APIKey,
				"Cartesia-Version": cfg.Version,
			},
		},
		modelID: cfg.ModelID,
	}, nil
}

type cartesiaSpeechRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoiceRef     `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
}

type cartesiaVoiceRef struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	BitRate    int    `json:"bit_rate"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize 实现 Provider。
func (c *Cartesia) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	logger.Debugf("[tts] cartesia: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voiceID)
	req, err := c.api.newRequest(ctx, http.MethodPost, "/tts/bytes", cartesiaSpeechRequest{
		ModelID:      c.modelID,
		Transcript:   text,
		Voice:        cartesiaVoiceRef{Mode: "id", ID: voiceID},
		OutputFormat: cartesiaOutputFormat{Container: "mp3", BitRate: 128000, SampleRate: 44100},
	})
	if err != nil {
		return nil, err
	}
	return c.api.do(req)
}

type cartesiaVoice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	IsPublic    bool   `json:"is_public"`
}

func (v cartesiaVoice) toVoice() Voice {
	category := "private"
	if v.IsPublic {
		category = "public"
	}
	return Voice{ID: v.ID, Name: v.Name, Description: v.Description, Language: v.Language, Category: category}
}

// ListVoices 实现 VoiceLister。接口按版本不同可能返回数组或 {"data": [...]}。
func (c *Cartesia) ListVoices(ctx context.Context) ([]Voice, error) {
	var raw json.RawMessage
	if err := c.api.getJSON(ctx, "/voices", &raw); err != nil {
		return nil, err
	}

	var list []cartesiaVoice
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Data []cartesiaVoice `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, &ProviderError{Provider: ProviderCartesia, Message: "解析语音列表失败", Err: err}
		}
		list = wrapped.Data
	}

	voices := make([]Voice, 0, len(list))
	for _, v := range list {
		voices = append(voices, v.toVoice())
	}
	return voices, nil
}

// GetVoice 实现 VoiceLister。
func (c *Cartesia) GetVoice(ctx context.Context, voiceID string) (*Voice, error) {
	var v cartesiaVoice
	if err := c.api.getJSON(ctx, "/voices/"+url.PathEscape(voiceID), &v); err != nil {
		return nil, err
	}
	out := v.toVoice()
	return &out, nil
}
