package audio

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestPCMToWAV(t *testing.T) {
	// 24kHz 单声道 0.5 秒静音
	pcm := make([]byte, 24000)
	data, err := PCMToWAV(pcm, 24000, 1)
	if err != nil {
		t.Fatalf("PCMToWAV failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", data[:12])
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		t.Fatal("decoder rejected output")
	}
	if dec.SampleRate != 24000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("format: %d Hz, %d ch, %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	if d := ProbeDuration(data, ContentTypeWAV); d < 490*time.Millisecond || d > 510*time.Millisecond {
		t.Errorf("duration = %v, want ≈500ms", d)
	}
}

func TestPCMToWAV_InvalidFormat(t *testing.T) {
	if _, err := PCMToWAV([]byte{0, 0}, 0, 1); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestBytesToInts(t *testing.T) {
	got := bytesToInts([]byte{0x02, 0x01, 0xff, 0xff, 0x7f})
	if len(got) != 2 || got[0] != 0x0102 || got[1] != -1 {
		t.Errorf("got %v", got)
	}
}

func TestProbeDuration_Unknown(t *testing.T) {
	if d := ProbeDuration([]byte("garbage"), ContentTypeMP3); d != 0 {
		t.Errorf("garbage mp3: got %v", d)
	}
	if d := ProbeDuration([]byte("x"), "application/octet-stream"); d != 0 {
		t.Errorf("unknown type: got %v", d)
	}
}
