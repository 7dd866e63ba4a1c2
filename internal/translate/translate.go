// Package translate 用腾讯云机器翻译把脚本译成其他语言，用于跨语言对比同一段话术。
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"github.com/iabetor/voicearena/internal/logger"
)

var (
	// ErrNotConfigured 缺少腾讯云凭证。
	ErrNotConfigured = errors.New("翻译服务未配置")
	// ErrEmptyText 待翻译文本为空。
	ErrEmptyText = errors.New("翻译文本不能为空")
)

// 语言名称到腾讯云语言代码的映射
var langCodeMap = map[string]string{
	"中文":     "zh",
	"汉语":     "zh",
	"英文":     "en",
	"英语":     "en",
	"日文":     "ja",
	"日语":     "ja",
	"韩文":     "ko",
	"韩语":     "ko",
	"法语":     "fr",
	"德语":     "de",
	"西班牙语": "es",
	"俄语":     "ru",
	"葡萄牙语": "pt",
	"意大利语": "it",
	"越南语":   "vi",
	"泰语":     "th",
	"阿拉伯语": "ar",
}

// NormalizeLang 把语言名称或代码转换为腾讯云语言代码。空串返回 "auto"。
func NormalizeLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "auto"
	}
	if code, ok := langCodeMap[lang]; ok {
		return code
	}
	return strings.ToLower(lang)
}

// Tencent 是腾讯云文本翻译客户端。
type Tencent struct {
	client *tmt.Client
}

// NewTencent 创建翻译客户端。
func NewTencent(secretID, secretKey, region string) (*Tencent, error) {
	if secretID == "" || secretKey == "" {
		return nil, ErrNotConfigured
	}
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建翻译客户端失败: %w", err)
	}

	logger.Info("[translate] 腾讯云翻译已初始化")
	return &Tencent{client: client}, nil
}

// Translate 把 text 译为 target 语言，source 为空时自动检测。
func (t *Tencent) Translate(ctx context.Context, text, target, source string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	target = NormalizeLang(target)
	source = NormalizeLang(source)

	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr(source)
	request.Target = common.StringPtr(target)
	request.ProjectId = common.Int64Ptr(0)

	response, err := t.client.TextTranslateWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("翻译请求失败: %w", err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", fmt.Errorf("翻译响应为空")
	}

	result := *response.Response.TargetText
	detected := source
	if response.Response.Source != nil {
		detected = *response.Response.Source
	}
	logger.Debugf("[translate] 翻译完成: %s -> %s (%d 字)", detected, target, len([]rune(result)))
	return result, nil
}
