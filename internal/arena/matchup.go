package arena

import (
	"math/rand"
	"sync"
	"time"

	"github.com/iabetor/voicearena/internal/store"
)

// Matchup 一轮对比：左右两个语音和一段脚本。
type Matchup struct {
	Left   store.Voice  `json:"left"`
	Right  store.Voice  `json:"right"`
	Script store.Script `json:"script"`
}

// Selector 随机选择对局。不记录历史，重复配对是允许的。
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector 创建 Selector。rng 为 nil 时使用按当前时间播种的随机源。
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Select 从启用的语音中无放回抽取两个，从全部脚本中抽取一个，
// 再用一次公平抛硬币决定左右位置，使语音身份与展示位置无关。
func (s *Selector) Select(voices []store.Voice, scripts []store.Script) (*Matchup, error) {
	active := make([]store.Voice, 0, len(voices))
	for _, v := range voices {
		if v.IsActive {
			active = append(active, v)
		}
	}
	if len(active) < 2 {
		return nil, ErrInsufficientVoices
	}
	if len(scripts) == 0 {
		return nil, ErrNoScripts
	}

	s.mu.Lock()
	i := s.rng.Intn(len(active))
	j := s.rng.Intn(len(active) - 1)
	if j >= i {
		j++
	}
	k := s.rng.Intn(len(scripts))
	swap := s.rng.Intn(2) == 1
	s.mu.Unlock()

	left, right := active[i], active[j]
	if swap {
		left, right = right, left
	}
	return &Matchup{Left: left, Right: right, Script: scripts[k]}, nil
}
