package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/iabetor/voicearena/internal/logger"
)

const indexFile = "cache_index.json"

// FileStore 把音频 blob 保存在本地目录下，并维护一个 JSON 索引记录内容类型等元数据。
type FileStore struct {
	mu      sync.RWMutex
	dir     string
	baseURL string
	index   map[string]*Entry
}

// NewFileStore 创建文件缓存。baseURL 是对外暴露缓存文件的 URL 前缀，例如 "/audio"。
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}

	fs := &FileStore{
		dir:     dir,
		baseURL: baseURL,
		index:   make(map[string]*Entry),
	}
	if err := fs.loadIndex(); err != nil {
		logger.Warnf("[cache] 加载缓存索引失败（将使用空索引）: %v", err)
	}
	fs.validateIndex()
	return fs, nil
}

// Dir 返回缓存目录。
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) filePath(key string) string {
	return filepath.Join(fs.dir, filepath.FromSlash(key))
}

// Head 实现 BlobStore。
func (fs *FileStore) Head(ctx context.Context, key string) (string, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if _, ok := fs.index[key]; !ok {
		return "", false, nil
	}
	if _, err := os.Stat(fs.filePath(key)); err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return publicURL(fs.baseURL, key), true, nil
}

// Put 实现 BlobStore。先写临时文件再 rename，读者不会看到半截文件。
func (fs *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("非法缓存键: %q", key)
	}
	path := fs.filePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("创建缓存目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("写入缓存文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("写入缓存文件失败: %w", err)
	}

	entry := newEntry(key, data, contentType)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("提交缓存文件失败: %w", err)
	}
	fs.index[key] = &entry
	if err := fs.saveIndexLocked(); err != nil {
		return "", fmt.Errorf("保存缓存索引失败: %w", err)
	}

	logger.Infof("[cache] 已缓存: %s (%s, %d bytes)", key, contentType, entry.Size)
	return publicURL(fs.baseURL, key), nil
}

// Get 实现 BlobStore。
func (fs *FileStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	fs.mu.RLock()
	entry, ok := fs.index[key]
	fs.mu.RUnlock()
	if !ok {
		return nil, "", ErrBlobNotFound
	}

	data, err := os.ReadFile(fs.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("读取缓存文件失败: %w", err)
	}
	return data, entry.ContentType, nil
}

// List 返回所有缓存条目，按缓存时间倒序。
func (fs *FileStore) List(ctx context.Context) ([]Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	results := make([]Entry, 0, len(fs.index))
	for _, e := range fs.index {
		results = append(results, *e)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CachedAt != results[j].CachedAt {
			return results[i].CachedAt > results[j].CachedAt
		}
		return results[i].Key < results[j].Key
	})
	return results, nil
}

// loadIndex 从磁盘加载缓存索引。
func (fs *FileStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(fs.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &fs.index)
}

// saveIndexLocked 持久化缓存索引（调用方需持有锁）。
func (fs *FileStore) saveIndexLocked() error {
	data, err := json.MarshalIndent(fs.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(fs.dir, indexFile), data, 0644)
}

// validateIndex 移除本地文件已不存在的条目。
func (fs *FileStore) validateIndex() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	removed := 0
	for key := range fs.index {
		if _, err := os.Stat(fs.filePath(key)); err != nil {
			delete(fs.index, key)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("[cache] 索引校验：移除 %d 个无效条目", removed)
		fs.saveIndexLocked()
	}
	logger.Infof("[cache] 缓存已加载: %d 个音频, 目录 %s", len(fs.index), fs.dir)
}
