// Package rss 从 RSS/Atom 订阅源导入朗读脚本草稿。
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/k3a/html2text"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"

	"github.com/iabetor/voicearena/internal/logger"
)

const (
	defaultCacheTTL     = 30 * time.Minute
	defaultMaxItems     = 20
	defaultFetchTimeout = 10 * time.Second
	defaultMaxContent   = 1000
)

// Draft 是从订阅条目生成的脚本草稿，尚未入库。
type Draft struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Link      string    `json:"link,omitempty"`
	Published time.Time `json:"published"`
}

// Options 导入参数。
type Options struct {
	// Limit 最多返回的草稿数，0 表示使用默认值。
	Limit int
	// Keyword 只保留标题或正文包含该关键词的条目。
	Keyword  string
	Category string
}

// Importer 抓取并解析订阅源。解析结果按 URL 缓存一段时间。
type Importer struct {
	parser     *gofeed.Parser
	client     *http.Client
	cache      *cache.Cache
	maxContent int
}

// NewImporter 创建导入器。maxContent 是单条脚本的最大字符数，超出部分在句子边界截断。
func NewImporter(client *http.Client, maxContent int) *Importer {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if maxContent <= 0 {
		maxContent = defaultMaxContent
	}
	return &Importer{
		parser:     gofeed.NewParser(),
		client:     client,
		cache:      cache.New(defaultCacheTTL, 2*defaultCacheTTL),
		maxContent: maxContent,
	}
}

// Import 抓取订阅源并把条目转换为脚本草稿，按发布时间倒序。
func (im *Importer) Import(ctx context.Context, url string, opts Options) (string, []Draft, error) {
	feed, err := im.fetch(ctx, url)
	if err != nil {
		return "", nil, fmt.Errorf("无法解析该订阅源: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 || limit > defaultMaxItems {
		limit = defaultMaxItems
	}
	keyword := strings.ToLower(strings.TrimSpace(opts.Keyword))

	drafts := make([]Draft, 0, limit)
	for _, item := range feed.Items {
		if len(drafts) >= limit {
			break
		}
		d, ok := im.toDraft(item, opts.Category)
		if !ok {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(d.Title), keyword) &&
			!strings.Contains(strings.ToLower(d.Content), keyword) {
			continue
		}
		drafts = append(drafts, d)
	}

	title := feed.Title
	if title == "" {
		title = url
	}
	logger.Infof("[rss] %s: 共 %d 条，生成 %d 个草稿", title, len(feed.Items), len(drafts))
	return title, drafts, nil
}

func (im *Importer) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	if v, ok := im.cache.Get(url); ok {
		logger.Debugf("[rss] 缓存命中: %s", url)
		return v.(*gofeed.Feed), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "VoiceArena/1.0 Feed Importer")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	feed, err := im.parser.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	im.cache.SetDefault(url, feed)
	return feed, nil
}

func (im *Importer) toDraft(item *gofeed.Item, category string) (Draft, bool) {
	body := item.Description
	if body == "" {
		body = item.Content
	}
	content := truncateSentence(plainText(body), im.maxContent)
	if content == "" {
		return Draft{}, false
	}

	published := time.Now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	title := plainText(item.Title)
	if title == "" {
		title = truncateSentence(content, 60)
	}
	return Draft{
		Title:     title,
		Content:   content,
		Category:  category,
		Link:      item.Link,
		Published: published,
	}, true
}

// plainText 把 HTML 转为纯文本并合并空白。
func plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html2text.HTML2Text(s)), " ")
}

// truncateSentence 把文本截断到 maxLen 个字符以内，尽量停在句末标点。
func truncateSentence(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)[:maxLen]
	for i := len(runes) - 1; i > maxLen/2; i-- {
		switch runes[i] {
		case '.', '!', '?', '。', '！', '？':
			return string(runes[:i+1])
		}
	}
	return strings.TrimSpace(string(runes[:maxLen-1])) + "…"
}
