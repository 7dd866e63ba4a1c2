package arena

import (
	"context"
	"fmt"

	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/store"
)

// Replay 按时间顺序重放对比记录，从 initial 开始重新计算每个语音的评分。
// 平局不改变评分；引用未知语音的记录被忽略，与在线记录时的行为一致。
func Replay(voiceIDs []string, comparisons []store.Comparison, initial float64) map[string]float64 {
	scores := make(map[string]float64, len(voiceIDs))
	for _, id := range voiceIDs {
		scores[id] = initial
	}
	for _, c := range comparisons {
		o := outcomeOf(c.VoiceAID, c.VoiceBID, c.WinnerID)
		if o == OutcomeTie {
			continue
		}
		ra, okA := scores[c.VoiceAID]
		rb, okB := scores[c.VoiceBID]
		if !okA || !okB {
			continue
		}
		scores[c.VoiceAID], scores[c.VoiceBID] = UpdateRatings(ra, rb, o.Score())
	}
	return scores
}

// ReplayStorage 是 Recompute 需要的持久化能力。
type ReplayStorage interface {
	ListVoices(ctx context.Context) ([]store.Voice, error)
	ListComparisons(ctx context.Context) ([]store.Comparison, error)
	ReplaceRatings(ctx context.Context, scores map[string]float64) error
	InitialRating() float64
}

// Recompute 从完整的对比记录重算并覆盖所有评分，返回新评分。
func Recompute(ctx context.Context, st ReplayStorage) (map[string]float64, error) {
	voices, err := st.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	comparisons, err := st.ListComparisons(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(voices))
	for _, v := range voices {
		ids = append(ids, v.ID)
	}
	scores := Replay(ids, comparisons, st.InitialRating())
	if err := st.ReplaceRatings(ctx, scores); err != nil {
		return nil, fmt.Errorf("写回评分失败: %w", err)
	}
	logger.Infof("[arena] 已根据 %d 条对比记录重算 %d 个语音的评分", len(comparisons), len(scores))
	return scores, nil
}
