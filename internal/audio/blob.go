// Package audio 提供合成音频的缓存：按 (语音, 脚本) 键控的 blob 存储与回源生成。
package audio

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrBlobNotFound 表示缓存中没有该键。
var ErrBlobNotFound = errors.New("缓存条目不存在")

// BlobStore 是不可变 blob 的键值存储。同一键重复写入是幂等的。
type BlobStore interface {
	// Head 返回已缓存条目的公开 URL；不存在时 ok 为 false。
	Head(ctx context.Context, key string) (url string, ok bool, err error)
	// Put 写入条目并返回公开 URL。
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get 读取条目内容和内容类型。
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Entry 缓存索引中的一条记录。
type Entry struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
	CachedAt    string `json:"cached_at"`
}

// Lister 是可列举条目的 BlobStore。
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}

func newEntry(key string, data []byte, contentType string) Entry {
	e := Entry{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		CachedAt:    time.Now().Format(time.RFC3339),
	}
	if d := ProbeDuration(data, contentType); d > 0 {
		e.DurationMs = d.Milliseconds()
	}
	return e
}

// publicURL 拼接公开访问地址。
func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// validKey 拒绝空键和跳出缓存目录的键。
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
