package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/voicearena/internal/logger"
)

// EdgeVoices 常用的 Edge TTS 神经网络语音。
var EdgeVoices = []Voice{
	{ID: "en-US-AriaNeural", Name: "Aria", Language: "en-US", Description: "Female, news and conversation"},
	{ID: "en-US-GuyNeural", Name: "Guy", Language: "en-US", Description: "Male, news"},
	{ID: "en-US-JennyNeural", Name: "Jenny", Language: "en-US", Description: "Female, assistant"},
	{ID: "en-US-ChristopherNeural", Name: "Christopher", Language: "en-US", Description: "Male, authoritative"},
	{ID: "en-GB-SoniaNeural", Name: "Sonia", Language: "en-GB", Description: "Female, British"},
	{ID: "en-GB-RyanNeural", Name: "Ryan", Language: "en-GB", Description: "Male, British"},
	{ID: "zh-CN-XiaoxiaoNeural", Name: "晓晓", Language: "zh-CN", Description: "Female, warm"},
	{ID: "zh-CN-YunxiNeural", Name: "云希", Language: "zh-CN", Description: "Male, lively"},
}

// Edge 使用微软 Edge TTS 合成，直接返回 MP3。
type Edge struct{}

// NewEdge 创建 Edge TTS 客户端。
func NewEdge() *Edge {
	return &Edge{}
}

// Synthesize 实现 Provider。通过 edge-tts-go 的 Stream() 收集 MP3 音频块。
func (e *Edge) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voiceID)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(voiceID))
	if err != nil {
		return nil, &ProviderError{Provider: ProviderEdge, Message: "创建实例失败", Err: err}
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, &ProviderError{Provider: ProviderEdge, Message: "开始流式合成失败", Err: err}
	}

	var mp3Buf bytes.Buffer
	for msg := range ch {
		if ctx.Err() != nil {
			// 排空 channel，避免生产者阻塞
			continue
		}
		// Stream() 返回的 map 中，type=="audio" 的条目包含音频数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mp3Buf.Len() == 0 {
		return nil, &ProviderError{Provider: ProviderEdge, Message: fmt.Sprintf("语音 %s 未返回音频数据", voiceID)}
	}

	logger.Debugf("[tts] edge-tts: 收到 %d 字节 MP3 数据", mp3Buf.Len())
	return mp3Buf.Bytes(), nil
}

// ListVoices 实现 VoiceLister。
func (e *Edge) ListVoices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(EdgeVoices))
	copy(out, EdgeVoices)
	return out, nil
}

// GetVoice 实现 VoiceLister。
func (e *Edge) GetVoice(ctx context.Context, voiceID string) (*Voice, error) {
	if v, ok := findStatic(EdgeVoices, voiceID); ok {
		return v, nil
	}
	return nil, ErrVoiceNotFound
}
