package tts

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/iabetor/voicearena/internal/audio"
	"github.com/iabetor/voicearena/internal/logger"
)

// geminiSampleRate Gemini TTS 默认输出 24kHz 16-bit 单声道 PCM。
const geminiSampleRate = 24000

// GeminiVoices Gemini TTS 的预置语音，没有列表接口。
var GeminiVoices = []Voice{
	{ID: "Achernar", Name: "Achernar", Description: "Soft, conversational voice"},
	{ID: "Achird", Name: "Achird", Description: "Clear, professional voice"},
	{ID: "Algenib", Name: "Algenib", Description: "Warm, friendly voice"},
	{ID: "Algieba", Name: "Algieba", Description: "Expressive, dynamic voice"},
	{ID: "Alnilam", Name: "Alnilam", Description: "Calm, soothing voice"},
	{ID: "Aoede", Name: "Aoede", Description: "Bright, enthusiastic voice"},
	{ID: "Autonoe", Name: "Autonoe", Description: "Natural, conversational voice"},
	{ID: "Callirrhoe", Name: "Callirrhoe", Description: "Gentle, melodic voice"},
	{ID: "Charon", Name: "Charon", Description: "Deep, resonant voice"},
	{ID: "Despina", Name: "Despina", Description: "Light, cheerful voice"},
	{ID: "Enceladus", Name: "Enceladus", Description: "Authoritative, clear voice"},
	{ID: "Erinome", Name: "Erinome", Description: "Smooth, engaging voice"},
	{ID: "Fenrir", Name: "Fenrir", Description: "Strong, confident voice"},
	{ID: "Gacrux", Name: "Gacrux", Description: "Balanced, neutral voice"},
	{ID: "Iapetus", Name: "Iapetus", Description: "Rich, expressive voice"},
	{ID: "Kore", Name: "Kore", Description: "Warm, approachable voice"},
	{ID: "Laomedeia", Name: "Laomedeia", Description: "Elegant, refined voice"},
	{ID: "Leda", Name: "Leda", Description: "Soft, pleasant voice"},
	{ID: "Orus", Name: "Orus", Description: "Bold, commanding voice"},
	{ID: "Puck", Name: "Puck", Description: "Playful, energetic voice"},
	{ID: "Pulcherrima", Name: "Pulcherrima", Description: "Beautiful, flowing voice"},
	{ID: "Rasalgethi", Name: "Rasalgethi", Description: "Wise, thoughtful voice"},
	{ID: "Sadachbia", Name: "Sadachbia", Description: "Friendly, welcoming voice"},
	{ID: "Sadaltager", Name: "Sadaltager", Description: "Steady, reliable voice"},
	{ID: "Schedar", Name: "Schedar", Description: "Articulate, precise voice"},
	{ID: "Sulafat", Name: "Sulafat", Description: "Vibrant, lively voice"},
	{ID: "Umbriel", Name: "Umbriel", Description: "Mysterious, intriguing voice"},
	{ID: "Vindemiatrix", Name: "Vindemiatrix", Description: "Graceful, poised voice"},
	{ID: "Zephyr", Name: "Zephyr", Description: "Breezy, light voice"},
	{ID: "Zubenelgenubi", Name: "Zubenelgenubi", Description: "Unique, distinctive voice"},
}

// GeminiConfig Gemini 客户端配置。
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini 使用 Gemini 原生语音输出，把返回的 PCM 封装成 WAV。
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建 Gemini 客户端。
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini 需要 api_key: %w", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-preview-tts"
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// ContentType 实现 ContentTyper。
func (g *Gemini) ContentType() string {
	return audio.ContentTypeWAV
}

// Synthesize 实现 Provider。
func (g *Gemini) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	voice, ok := findStatic(GeminiVoices, voiceID)
	if !ok {
		return nil, fmt.Errorf("gemini 语音 %s: %w", voiceID, ErrVoiceNotFound)
	}
	logger.Debugf("[tts] gemini: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voice.ID)

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice.ID},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderGemini, Err: err}
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, &ProviderError{Provider: ProviderGemini, Message: "响应中没有音频数据"}
	}

	wav, err := audio.PCMToWAV(blob.Data, pcmRate(blob.MIMEType), 1)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderGemini, Message: "封装 WAV 失败", Err: err}
	}
	return wav, nil
}

// ListVoices 实现 VoiceLister。
func (g *Gemini) ListVoices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(GeminiVoices))
	copy(out, GeminiVoices)
	return out, nil
}

// GetVoice 实现 VoiceLister。
func (g *Gemini) GetVoice(ctx context.Context, voiceID string) (*Voice, error) {
	if v, ok := findStatic(GeminiVoices, voiceID); ok {
		return v, nil
	}
	return nil, ErrVoiceNotFound
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// pcmRate 从形如 "audio/L16;codec=pcm;rate=24000" 的 MIME 类型中解析采样率。
func pcmRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return geminiSampleRate
}
