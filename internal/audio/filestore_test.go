package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore_PutHeadGet(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "/audio/")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()
	key := Key("edge", "voice-1", "script-1")

	if _, ok, err := fs.Head(ctx, key); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	url, err := fs.Put(ctx, key, []byte("mp3-data"), ContentTypeMP3)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "/audio/tts/edge/voice-1/script-1" {
		t.Errorf("url = %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "tts", "edge", "voice-1", "script-1")); err != nil {
		t.Errorf("blob file missing: %v", err)
	}

	got, ok, err := fs.Head(ctx, key)
	if !ok || err != nil || got != url {
		t.Errorf("Head after put: %q %v %v", got, ok, err)
	}
	data, ct, err := fs.Get(ctx, key)
	if err != nil || string(data) != "mp3-data" || ct != ContentTypeMP3 {
		t.Errorf("Get: %q %q %v", data, ct, err)
	}
	if _, _, err := fs.Get(ctx, "tts/none/none"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestFileStore_IndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	fs, _ := NewFileStore(dir, "/audio")
	fs.Put(ctx, "tts/a/b", []byte("one"), ContentTypeWAV)
	fs.Put(ctx, "tts/a/c", []byte("two"), ContentTypeMP3)

	// 删掉一个文件，重新打开时应从索引中移除
	os.Remove(filepath.Join(dir, "tts", "a", "c"))

	reopened, err := NewFileStore(dir, "/audio")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	entries, _ := reopened.List(ctx)
	if len(entries) != 1 || entries[0].Key != "tts/a/b" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].ContentType != ContentTypeWAV || entries[0].Size != 3 {
		t.Errorf("metadata lost: %+v", entries[0])
	}
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir(), "/audio")
	for _, key := range []string{"", "../x", "tts/../../etc", "/abs", "a//b"} {
		if _, err := fs.Put(context.Background(), key, []byte("x"), ContentTypeMP3); err == nil {
			t.Errorf("Put(%q) should fail", key)
		}
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	m := NewMemoryStore("/audio", 20*time.Millisecond)
	ctx := context.Background()
	m.Put(ctx, "k", []byte("v"), ContentTypeMP3)
	if _, ok, _ := m.Head(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := m.Head(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
}
