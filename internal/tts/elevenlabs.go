package tts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iabetor/voicearena/internal/logger"
)

// ElevenLabsConfig ElevenLabs 客户端配置。
type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	HTTPClient *http.Client
}

// ElevenLabs 调用 ElevenLabs text-to-speech 接口，返回 MP3。
type ElevenLabs struct {
	api     httpAPI
	modelID string
}

// NewElevenLabs 创建 ElevenLabs 客户端。
func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs 需要 api_key: %w", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	return &ElevenLabs{
		api: httpAPI{
			provider: ProviderElevenLabs,
			baseURL:  cfg.BaseURL,
			client:   httpClientOrDefault(cfg.HTTPClient),
			headers:  map[string]string{"xi-api-key": cfg.APIKey},
		},
		modelID: cfg.ModelID,
	}, nil
}

type elevenLabsSpeechRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize 实现 Provider。
func (e *ElevenLabs) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	logger.Debugf("[tts] elevenlabs: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voiceID)
	req, err := e.api.newRequest(ctx, http.MethodPost, "/text-to-speech/"+url.PathEscape(voiceID), elevenLabsSpeechRequest{
		Text:          text,
		ModelID:       e.modelID,
		VoiceSettings: elevenLabsVoiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/mpeg")
	return e.api.do(req)
}

type elevenLabsVoice struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description *string           `json:"description"`
	Labels      map[string]string `json:"labels"`
	PreviewURL  string            `json:"preview_url"`
}

func (v elevenLabsVoice) toVoice() Voice {
	out := Voice{
		ID:         v.VoiceID,
		Name:       v.Name,
		Category:   v.Category,
		Labels:     v.Labels,
		PreviewURL: v.PreviewURL,
	}
	if v.Description != nil {
		out.Description = *v.Description
	}
	if lang, ok := v.Labels["language"]; ok {
		out.Language = lang
	}
	return out
}

// ListVoices 实现 VoiceLister。
func (e *ElevenLabs) ListVoices(ctx context.Context) ([]Voice, error) {
	var resp struct {
		Voices []elevenLabsVoice `json:"voices"`
	}
	if err := e.api.getJSON(ctx, "/voices", &resp); err != nil {
		return nil, err
	}
	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, v.toVoice())
	}
	return voices, nil
}

// GetVoice 实现 VoiceLister。
func (e *ElevenLabs) GetVoice(ctx context.Context, voiceID string) (*Voice, error) {
	var v elevenLabsVoice
	if err := e.api.getJSON(ctx, "/voices/"+url.PathEscape(voiceID), &v); err != nil {
		return nil, err
	}
	out := v.toVoice()
	return &out, nil
}
