// Package llm 使用 OpenAI 兼容的大模型生成用于语音对比的客服脚本。
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/iabetor/voicearena/internal/logger"
)

// Category 脚本分类。
type Category string

const (
	CategoryGreeting        Category = "greeting"
	CategoryTroubleshooting Category = "troubleshooting"
	CategoryBilling         Category = "billing"
	CategoryEmpathy         Category = "empathy"
	CategoryHoldTransfer    Category = "hold_transfer"
	CategoryClosing         Category = "closing"
	CategoryConfirmation    Category = "confirmation"
	CategoryEscalation      Category = "escalation"
)

// Categories 全部支持的分类，顺序固定。
var Categories = []Category{
	CategoryGreeting,
	CategoryTroubleshooting,
	CategoryBilling,
	CategoryEmpathy,
	CategoryHoldTransfer,
	CategoryClosing,
	CategoryConfirmation,
	CategoryEscalation,
}

var categoryPrompts = map[Category]string{
	CategoryGreeting:        "a warm, professional greeting from a customer support rep at the start of a call. Should introduce themselves and offer to help",
	CategoryTroubleshooting: "a support rep helping walk a customer through a fix or solution to their problem. Should be clear and reassuring",
	CategoryBilling:         "a support rep helping with a billing question, payment issue, or subscription inquiry. Should be clear about money matters",
	CategoryEmpathy:         "a support rep expressing understanding and empathy when a customer is frustrated or had a bad experience. Should acknowledge their feelings and apologize sincerely",
	CategoryHoldTransfer:    "a support rep asking the customer to hold or letting them know they'll be transferred to another department. Should be polite and set expectations",
	CategoryClosing:         "a support rep wrapping up a call, confirming the issue is resolved, and asking if there's anything else they can help with",
	CategoryConfirmation:    "a support rep confirming details back to the customer - like an order, address, or action they're about to take. Should be clear and precise",
	CategoryEscalation:      "a support rep explaining they need to escalate the issue to a specialist or manager. Should reassure the customer they're in good hands",
}

const systemPrompt = `You are a script writer creating test scripts for evaluating text-to-speech voices.
Generate scripts that are natural and suitable for voice synthesis testing.
Follow the specified length requirement exactly.`

var (
	// ErrNotConfigured 未配置 API key。
	ErrNotConfigured = errors.New("脚本生成未配置 API key")
	// ErrInvalidCategory 分类不在 Categories 中。
	ErrInvalidCategory = errors.New("无效的脚本分类")
	// ErrEmptyResponse 模型没有返回可用内容。
	ErrEmptyResponse = errors.New("模型未返回内容")
)

// ParseCategory 校验并返回分类。
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if _, ok := categoryPrompts[c]; !ok {
		return "", fmt.Errorf("%q，可选值: %s: %w", s, joinCategories(), ErrInvalidCategory)
	}
	return c, nil
}

func joinCategories() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// Script 生成的脚本。
type Script struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Config 脚本生成器配置。
type Config struct {
	APIURL     string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Generator 调用 chat completions 接口，以 JSON 模式生成脚本。
type Generator struct {
	client *openai.Client
	model  string
}

// NewGenerator 创建脚本生成器。
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.APIURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &Generator{client: openai.NewClientWithConfig(oc), model: model}, nil
}

// Generate 按分类生成一段 1-2 句的脚本，topic 可为空。
func (g *Generator) Generate(ctx context.Context, category Category, topic string) (*Script, error) {
	desc, ok := categoryPrompts[category]
	if !ok {
		return nil, fmt.Errorf("%q: %w", category, ErrInvalidCategory)
	}

	topicContext := ""
	if topic = strings.TrimSpace(topic); topic != "" {
		topicContext = fmt.Sprintf(" about %q", topic)
	}
	userPrompt := fmt.Sprintf(`Generate %s%s.

Length requirement: 1-2 sentences only

Return the response in this exact JSON format:
{
  "title": "A short descriptive title for this script",
  "content": "The actual script content to be spoken"
}`, desc, topicContext)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("[llm] 生成脚本失败: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	var script Script
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &script); err != nil {
		return nil, fmt.Errorf("[llm] 解析模型输出失败: %w", err)
	}
	script.Title = strings.TrimSpace(script.Title)
	script.Content = strings.TrimSpace(script.Content)
	if script.Content == "" {
		return nil, ErrEmptyResponse
	}
	if script.Title == "" {
		script.Title = string(category)
	}

	logger.Infof("[llm] 已生成脚本: %s (分类: %s, 模型: %s)", script.Title, category, g.model)
	return &script, nil
}
