package audio

import (
	"bytes"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ProbeDuration 估算音频时长，无法解析时返回 0。
func ProbeDuration(data []byte, contentType string) time.Duration {
	switch {
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		decoder, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil || decoder.SampleRate() == 0 {
			return 0
		}
		// go-mp3 输出 16-bit 双声道，每帧 4 字节
		frames := decoder.Length() / 4
		return time.Duration(frames) * time.Second / time.Duration(decoder.SampleRate())
	case strings.Contains(contentType, "wav"):
		d, err := wav.NewDecoder(bytes.NewReader(data)).Duration()
		if err != nil {
			return 0
		}
		return d
	}
	return 0
}
