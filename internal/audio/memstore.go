package audio

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
)

type memBlob struct {
	data  []byte
	entry Entry
}

// MemoryStore 是进程内的 BlobStore，适合开发和测试。ttl 为 0 时条目不过期。
type MemoryStore struct {
	items   *cache.Cache
	baseURL string
}

// NewMemoryStore 创建内存缓存。
func NewMemoryStore(baseURL string, ttl time.Duration) *MemoryStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &MemoryStore{
		items:   cache.New(expiration, cleanup),
		baseURL: baseURL,
	}
}

// Head 实现 BlobStore。
func (m *MemoryStore) Head(ctx context.Context, key string) (string, bool, error) {
	if _, ok := m.items.Get(key); !ok {
		return "", false, nil
	}
	return publicURL(m.baseURL, key), true, nil
}

// Put 实现 BlobStore。
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.items.SetDefault(key, &memBlob{data: buf, entry: newEntry(key, buf, contentType)})
	return publicURL(m.baseURL, key), nil
}

// Get 实现 BlobStore。
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, "", ErrBlobNotFound
	}
	b := v.(*memBlob)
	return b.data, b.entry.ContentType, nil
}

// List 返回所有未过期条目。
func (m *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	items := m.items.Items()
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*memBlob).entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
