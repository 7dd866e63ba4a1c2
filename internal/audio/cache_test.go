package audio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iabetor/voicearena/internal/metrics"
)

func countingSynth(calls *int32, data string) SynthesizeFunc {
	return func(ctx context.Context) ([]byte, string, error) {
		atomic.AddInt32(calls, 1)
		return []byte(data), ContentTypeMP3, nil
	}
}

func TestGetOrGenerate_SecondCallHitsCache(t *testing.T) {
	m := metrics.New()
	c := NewCache(NewMemoryStore("/audio", 0), m)
	ctx := context.Background()
	var calls int32

	res, err := c.GetOrGenerate(ctx, "edge", "v1", "s1", countingSynth(&calls, "audio-bytes"))
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if res.Hit || string(res.Data) != "audio-bytes" || res.URL != "/audio/tts/edge/v1/s1" {
		t.Errorf("unexpected miss result: %+v", res)
	}

	res, err = c.GetOrGenerate(ctx, "edge", "v1", "s1", countingSynth(&calls, "other"))
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if !res.Hit || res.URL != "/audio/tts/edge/v1/s1" {
		t.Errorf("expected hit with URL, got %+v", res)
	}
	if calls != 1 {
		t.Errorf("synthesis called %d times, want 1", calls)
	}

	data, ct, err := c.Load(ctx, Key("edge", "v1", "s1"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "audio-bytes" || ct != ContentTypeMP3 {
		t.Errorf("cached bytes: got %q (%s)", data, ct)
	}

	expected := `
# HELP voicearena_audio_cache_lookups_total Audio cache lookups partitioned by result (hit, miss, bypass).
# TYPE voicearena_audio_cache_lookups_total counter
voicearena_audio_cache_lookups_total{result="hit"} 1
voicearena_audio_cache_lookups_total{result="miss"} 1
`
	if err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "voicearena_audio_cache_lookups_total"); err != nil {
		t.Errorf("cache lookup metrics: %v", err)
	}
}

func TestGetOrGenerate_DistinctKeys(t *testing.T) {
	c := NewCache(NewMemoryStore("/audio", 0), nil)
	var calls int32
	c.GetOrGenerate(context.Background(), "edge", "v1", "s1", countingSynth(&calls, "a"))
	c.GetOrGenerate(context.Background(), "edge", "v2", "s1", countingSynth(&calls, "b"))
	c.GetOrGenerate(context.Background(), "edge", "v1", "s2", countingSynth(&calls, "c"))
	c.GetOrGenerate(context.Background(), "tencent", "v1", "s1", countingSynth(&calls, "d"))
	if calls != 4 {
		t.Errorf("expected 4 syntheses for 4 keys, got %d", calls)
	}
}

// 语音改绑到另一个服务商音色后，同一脚本必须重新合成，不能返回旧音色的音频。
func TestGetOrGenerate_RebindingVoiceMisses(t *testing.T) {
	c := NewCache(NewMemoryStore("/audio", 0), nil)
	ctx := context.Background()
	var calls int32

	if _, err := c.GetOrGenerate(ctx, "elevenlabs", "el-old", "s1", countingSynth(&calls, "audio-of-el-old")); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	res, err := c.GetOrGenerate(ctx, "elevenlabs", "el-new", "s1", countingSynth(&calls, "audio-of-el-new"))
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if res.Hit || string(res.Data) != "audio-of-el-new" {
		t.Errorf("rebound voice served stale audio: %+v", res)
	}
	if calls != 2 {
		t.Errorf("synthesis called %d times, want 2", calls)
	}
}

func TestGetOrGenerate_SynthesisErrorPropagates(t *testing.T) {
	store := NewMemoryStore("/audio", 0)
	c := NewCache(store, nil)
	wantErr := errors.New("provider down")

	_, err := c.GetOrGenerate(context.Background(), "edge", "v", "s", func(ctx context.Context) ([]byte, string, error) {
		return nil, "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, ok, _ := store.Head(context.Background(), Key("edge", "v", "s")); ok {
		t.Error("failed synthesis must not be cached")
	}
}

type brokenStore struct {
	puts int32
}

func (b *brokenStore) Head(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("head failed")
}

func (b *brokenStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	atomic.AddInt32(&b.puts, 1)
	return "", errors.New("bucket unavailable")
}

func (b *brokenStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	return nil, "", ErrBlobNotFound
}

func TestGetOrGenerate_CacheFailuresAreSwallowed(t *testing.T) {
	bs := &brokenStore{}
	m := metrics.New()
	c := NewCache(bs, m)
	var calls int32

	res, err := c.GetOrGenerate(context.Background(), "edge", "v", "s", countingSynth(&calls, "fresh"))
	if err != nil {
		t.Fatalf("cache failures must not surface: %v", err)
	}
	if string(res.Data) != "fresh" || res.URL != "" || res.Hit {
		t.Errorf("unexpected result: %+v", res)
	}
	if bs.puts != 1 {
		t.Errorf("expected one put attempt, got %d", bs.puts)
	}
	expected := `
# HELP voicearena_audio_cache_write_errors_total Best-effort audio cache writes that failed and were discarded.
# TYPE voicearena_audio_cache_write_errors_total counter
voicearena_audio_cache_write_errors_total 1
`
	if err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "voicearena_audio_cache_write_errors_total"); err != nil {
		t.Errorf("write error metric: %v", err)
	}
}

func TestGetOrGenerate_ConcurrentMissesCollapse(t *testing.T) {
	c := NewCache(NewMemoryStore("/audio", 0), nil)
	var calls int32
	release := make(chan struct{})
	synth := func(ctx context.Context) ([]byte, string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("x"), ContentTypeMP3, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrGenerate(context.Background(), "edge", "v", "s", synth); err != nil {
				t.Errorf("GetOrGenerate failed: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected one synthesis for concurrent misses, got %d", calls)
	}
}

func TestGenerate_Bypass(t *testing.T) {
	store := NewMemoryStore("/audio", 0)
	c := NewCache(store, nil)
	var calls int32
	for i := 0; i < 2; i++ {
		if _, _, err := c.Generate(context.Background(), countingSynth(&calls, "free text")); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("free text must never be cached, got %d calls", calls)
	}
	entries, _ := store.List(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected empty store, got %+v", entries)
	}
}
