// Package tts 封装各语音合成服务，统一为 Provider 接口，并提供带限流与观测的 Registry。
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 服务商名称，同时用作 Voice.Provider 字段的取值。
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderCartesia   = "cartesia"
	ProviderGemini     = "gemini"
	ProviderEdge       = "edge"
	ProviderTencent    = "tencent"
)

var (
	// ErrVoiceNotFound 服务商不认识该 voice id。
	ErrVoiceNotFound = errors.New("服务商中不存在该语音")
	// ErrUnknownProvider 未注册的服务商。
	ErrUnknownProvider = errors.New("未知的语音服务商")
	// ErrNotConfigured 服务商缺少必要配置，例如 API key。
	ErrNotConfigured = errors.New("语音服务商未配置")
	// ErrListUnsupported 服务商不提供语音目录。
	ErrListUnsupported = errors.New("该服务商不支持列出语音")
)

// Provider 是语音合成能力：给定服务商侧的 voice id 和文本，返回编码后的音频。
type Provider interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// ContentTyper 由返回非 MP3 音频的 Provider 实现。
type ContentTyper interface {
	ContentType() string
}

// Voice 是服务商语音目录中的一项。
type Voice struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Language    string            `json:"language,omitempty"`
	Category    string            `json:"category,omitempty"`
	PreviewURL  string            `json:"previewUrl,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// VoiceLister 由提供语音目录的 Provider 实现。
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
	GetVoice(ctx context.Context, voiceID string) (*Voice, error)
}

// ProviderError 表示上游合成服务调用失败。
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] 合成服务返回 %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("[%s] 合成服务调用失败: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) || errors.Is(err, ErrVoiceNotFound) || errors.Is(err, ErrNotConfigured) {
		return err
	}
	return &ProviderError{Provider: provider, Err: err}
}

// findStatic 在静态语音目录中按 id 查找（不区分大小写）。
func findStatic(voices []Voice, id string) (*Voice, bool) {
	for i := range voices {
		if strings.EqualFold(voices[i].ID, id) {
			v := voices[i]
			return &v, true
		}
	}
	return nil, false
}
