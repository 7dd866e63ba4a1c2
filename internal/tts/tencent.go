package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/voicearena/internal/logger"
)

// TencentVoices 腾讯云 TTS 常用音色，ID 为 VoiceType。
var TencentVoices = []Voice{
	{ID: "1001", Name: "智瑜", Language: "zh-CN", Description: "情感女声"},
	{ID: "1002", Name: "智聆", Language: "zh-CN", Description: "通用女声"},
	{ID: "1003", Name: "智美", Language: "zh-CN", Description: "客服女声"},
	{ID: "1004", Name: "智云", Language: "zh-CN", Description: "通用男声"},
	{ID: "1008", Name: "智琪", Language: "zh-CN", Description: "客服女声"},
	{ID: "1050", Name: "WeJack", Language: "en-US", Description: "英文男声"},
	{ID: "1051", Name: "WeRose", Language: "en-US", Description: "英文女声"},
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	Region    string
	Speed     float64
}

// Tencent 使用腾讯云 TextToVoice 接口合成，返回 MP3。
type Tencent struct {
	client *tts.Client
	speed  float64
}

// NewTencent 创建腾讯云 TTS 客户端。
func NewTencent(cfg TencentConfig) (*Tencent, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("腾讯云 TTS 需要 SecretID 和 SecretKey: %w", ErrNotConfigured)
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建腾讯云 TTS 客户端失败: %w", err)
	}
	logger.Infof("[tts] 腾讯云 TTS 已初始化 (region=%s)", cfg.Region)
	return &Tencent{client: client, speed: cfg.Speed}, nil
}

// parseVoiceType 将 voice id 解析为腾讯云 VoiceType。
func parseVoiceType(voiceID string) (int64, error) {
	vt, err := strconv.ParseInt(voiceID, 10, 64)
	if err != nil || vt <= 0 {
		return 0, fmt.Errorf("腾讯云音色 %q: %w", voiceID, ErrVoiceNotFound)
	}
	return vt, nil
}

// Synthesize 实现 Provider。
func (t *Tencent) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	voiceType, err := parseVoiceType(voiceID)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(text)), voiceType)

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr(uuid.NewString())
	request.VoiceType = common.Int64Ptr(voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(t.speed)
	request.Volume = common.Float64Ptr(5.0)

	response, err := t.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderTencent, Err: err}
	}
	if response.Response == nil || response.Response.Audio == nil {
		return nil, &ProviderError{Provider: ProviderTencent, Message: "未返回音频数据"}
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderTencent, Message: "Base64 解码失败", Err: err}
	}
	logger.Debugf("[tts] 腾讯云 TTS: 收到 %d 字节 MP3 数据", len(mp3Data))
	return mp3Data, nil
}

// ListVoices 实现 VoiceLister。
func (t *Tencent) ListVoices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(TencentVoices))
	copy(out, TencentVoices)
	return out, nil
}

// GetVoice 实现 VoiceLister。
func (t *Tencent) GetVoice(ctx context.Context, voiceID string) (*Voice, error) {
	if v, ok := findStatic(TencentVoices, voiceID); ok {
		return v, nil
	}
	if _, err := parseVoiceType(voiceID); err != nil {
		return nil, err
	}
	// 未收录的数字音色也允许导入
	return &Voice{ID: voiceID, Name: "VoiceType " + voiceID}, nil
}
