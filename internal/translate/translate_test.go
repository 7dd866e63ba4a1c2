package translate

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestNormalizeLang(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "auto"},
		{"英语", "en"},
		{"日文", "ja"},
		{"EN", "en"},
		{" zh ", "zh"},
		{"pt", "pt"},
	}
	for _, tc := range tests {
		if got := NormalizeLang(tc.input); got != tc.expected {
			t.Errorf("NormalizeLang(%q) = %q, 期望 %q", tc.input, got, tc.expected)
		}
	}
}

func TestNewTencent_RequiresCredentials(t *testing.T) {
	if _, err := NewTencent("", "key", "ap-guangzhou"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("缺少 SecretID 应返回 ErrNotConfigured, got %v", err)
	}
}

func TestTranslate_EmptyText(t *testing.T) {
	tr, err := NewTencent("id", "key", "ap-guangzhou")
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	if _, err := tr.Translate(context.Background(), "   ", "en", ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("空文本应返回 ErrEmptyText, got %v", err)
	}
}

func TestTranslate_Live(t *testing.T) {
	secretID := os.Getenv("VOICEARENA_TENCENT_SECRET_ID")
	secretKey := os.Getenv("VOICEARENA_TENCENT_SECRET_KEY")
	if secretID == "" || secretKey == "" {
		t.Skip("跳过翻译测试: 未设置 VOICEARENA_TENCENT_SECRET_ID 或 VOICEARENA_TENCENT_SECRET_KEY")
	}

	tr, err := NewTencent(secretID, secretKey, "ap-guangzhou")
	if err != nil {
		t.Fatalf("创建翻译客户端失败: %v", err)
	}
	got, err := tr.Translate(context.Background(), "Thank you for calling, how can I help?", "中文", "")
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}
	if got == "" {
		t.Error("翻译结果为空")
	}
}
