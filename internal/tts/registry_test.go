package tts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iabetor/voicearena/internal/metrics"
)

type fakeProvider struct {
	calls int32
	err   error
	ct    string
}

func (f *fakeProvider) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(voiceID + ":" + text), nil
}

type wavProvider struct{ fakeProvider }

func (w *wavProvider) ContentType() string { return "audio/wav" }

func TestRegistry_Synthesize(t *testing.T) {
	r := NewRegistry(RegistryOptions{Metrics: metrics.New()})
	fp := &fakeProvider{}
	r.Register("fake", fp)
	r.Register("wav", &wavProvider{})

	data, ct, err := r.Synthesize(context.Background(), "fake", "v1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "v1:hello", string(data))
	assert.Equal(t, DefaultContentType, ct)

	_, ct, err = r.Synthesize(context.Background(), "wav", "v1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", ct)

	assert.Equal(t, []string{"fake", "wav"}, r.Names())
	assert.True(t, r.Has("fake"))
	assert.False(t, r.Has("nope"))
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	_, _, err := r.Synthesize(context.Background(), "nope", "v", "t")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.Lister("nope")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistry_WrapsProviderErrors(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	r.Register("broken", &fakeProvider{err: errors.New("connection reset")})
	r.Register("picky", &fakeProvider{err: ErrVoiceNotFound})

	_, _, err := r.Synthesize(context.Background(), "broken", "v", "t")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "broken", pe.Provider)

	_, _, err = r.Synthesize(context.Background(), "picky", "v", "t")
	assert.ErrorIs(t, err, ErrVoiceNotFound)
	assert.False(t, errors.As(err, &pe))
}

func TestRegistry_ListerSupport(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	r.Register("fake", &fakeProvider{})
	r.Register(ProviderEdge, NewEdge())

	_, err := r.Lister("fake")
	assert.ErrorIs(t, err, ErrListUnsupported)

	l, err := r.Lister(ProviderEdge)
	require.NoError(t, err)
	voices, _ := l.ListVoices(context.Background())
	assert.NotEmpty(t, voices)
}

func TestRegistry_RateLimit(t *testing.T) {
	r := NewRegistry(RegistryOptions{RatePerSecond: 20, Burst: 1})
	fp := &fakeProvider{}
	r.Register("fake", fp)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, err := r.Synthesize(context.Background(), "fake", "v", "t")
		require.NoError(t, err)
	}
	// 20 rps、burst 1：第 2、3 次各等待约 50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.EqualValues(t, 3, atomic.LoadInt32(&fp.calls))
}

func TestRegistry_RateLimitRespectsContext(t *testing.T) {
	r := NewRegistry(RegistryOptions{RatePerSecond: 0.1, Burst: 1})
	r.Register("slow", &fakeProvider{})
	_, _, err := r.Synthesize(context.Background(), "slow", "v", "t")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = r.Synthesize(ctx, "slow", "v", "t")
	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
}
