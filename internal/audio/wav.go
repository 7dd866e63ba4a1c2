package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ContentTypeWAV 和 ContentTypeMP3 是缓存中使用的内容类型。
const (
	ContentTypeWAV = "audio/wav"
	ContentTypeMP3 = "audio/mpeg"
)

// PCMToWAV 将 16-bit 小端 PCM 封装为 WAV。
func PCMToWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("无效的音频格式: %d Hz, %d 声道", sampleRate, channels)
	}

	buf := &writeSeeker{}
	enc := wav.NewEncoder(buf, sampleRate, 16, channels, 1)
	ib := &goaudio.IntBuffer{
		Data:           bytesToInts(pcm),
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(ib); err != nil {
		return nil, fmt.Errorf("写入 WAV 失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("写入 WAV 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// bytesToInts 将小端 16-bit 字节转换为样本，末尾不足一个样本的字节被丢弃。
func bytesToInts(b []byte) []int {
	n := len(b) / 2
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(int16(b[2*i]) | int16(b[2*i+1])<<8)
	}
	return out
}

// writeSeeker 是内存中的 io.WriteSeeker，wav.Encoder 关闭时需要回写头部。
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		if end > cap(w.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, w.buf)
			w.buf = grown
		} else {
			w.buf = w.buf[:end]
		}
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("无效的 whence")
	}
	if abs < 0 {
		return 0, errors.New("负的偏移量")
	}
	w.pos = int(abs)
	return abs, nil
}

func (w *writeSeeker) Bytes() []byte {
	return w.buf
}
