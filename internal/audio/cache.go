package audio

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/metrics"
)

// SynthesizeFunc 在缓存未命中时生成音频，返回音频字节和内容类型。
type SynthesizeFunc func(ctx context.Context) ([]byte, string, error)

// Result 是一次缓存查询的结果。
// 命中时只有 URL，调用方可重定向到缓存地址或用 Load 读取；未命中时 Data 为新生成的音频。
type Result struct {
	Data        []byte
	ContentType string
	URL         string
	Hit         bool
}

// Cache 按 (服务商语音, 脚本) 缓存合成结果，避免重复调用付费合成服务。
//
// 键由服务商和服务商侧 voice id 组成，语音改绑到其他服务商音色后自然落到新键上。
// 键不包含脚本内容：原地修改脚本文本后仍会返回旧音频。
// 缓存写入是尽力而为的，失败只记录日志和指标，不影响本次返回。
type Cache struct {
	store   BlobStore
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCache 创建缓存。m 可以为 nil。
func NewCache(store BlobStore, m *metrics.Metrics) *Cache {
	return &Cache{store: store, metrics: m}
}

// Store 返回底层 BlobStore。
func (c *Cache) Store() BlobStore {
	return c.store
}

// Key 返回 (服务商, 服务商 voice id, 脚本) 的缓存键。
func Key(provider, voiceID, scriptID string) string {
	return "tts/" + provider + "/" + voiceID + "/" + scriptID
}

// GetOrGenerate 查找缓存，未命中时调用 synth 生成并写回缓存。
// 同一键的并发未命中只会触发一次合成。合成失败时返回错误，缓存读写失败则被吞掉。
func (c *Cache) GetOrGenerate(ctx context.Context, provider, voiceID, scriptID string, synth SynthesizeFunc) (*Result, error) {
	key := Key(provider, voiceID, scriptID)

	url, ok, err := c.store.Head(ctx, key)
	if err != nil {
		logger.Warnf("[cache] 查询缓存失败，按未命中处理: %s: %v", key, err)
	}
	if ok {
		c.metrics.CacheLookup("hit")
		logger.Debugf("[cache] 命中: %s", key)
		return &Result{URL: url, Hit: true}, nil
	}
	c.metrics.CacheLookup("miss")

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// 合成一旦发起就执行到底，不随某个请求取消
		sctx := context.WithoutCancel(ctx)
		data, contentType, err := synth(sctx)
		if err != nil {
			return nil, err
		}
		res := &Result{Data: data, ContentType: contentType}
		res.URL = c.put(sctx, key, data, contentType)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debugf("[cache] 合并并发未命中: %s", key)
	}
	return v.(*Result), nil
}

// put 尽力写入缓存，失败时返回空 URL。
func (c *Cache) put(ctx context.Context, key string, data []byte, contentType string) string {
	url, err := c.store.Put(ctx, key, data, contentType)
	if err != nil {
		c.metrics.CacheWriteError()
		logger.Warnf("[cache] 写入缓存失败（已忽略）: %s: %v", key, err)
		return ""
	}
	return url
}

// Generate 直接合成而不经过缓存，用于没有稳定键的自由文本。
func (c *Cache) Generate(ctx context.Context, synth SynthesizeFunc) ([]byte, string, error) {
	c.metrics.CacheLookup("bypass")
	return synth(ctx)
}

// Load 按键读取缓存内容。
func (c *Cache) Load(ctx context.Context, key string) ([]byte, string, error) {
	data, contentType, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("读取缓存失败: %w", err)
	}
	return data, contentType, nil
}
