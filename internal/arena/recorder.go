package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/metrics"
	"github.com/iabetor/voicearena/internal/store"
)

// Storage 是 Recorder 依赖的持久化能力。
type Storage interface {
	CreateComparison(ctx context.Context, c *store.Comparison) error
	RatingByVoice(ctx context.Context, voiceID string) (*store.Rating, error)
	UpdateRating(ctx context.Context, voiceID string, score float64) error
}

// Recorder 记录投票并更新评分。
//
// 对比记录先于评分写入且二者不在同一事务中：记录写入成功即视为投票成功，
// 评分更新失败只记 debug 日志并计数。并发投票对同一语音的评分是后写者胜出，
// 评分漂移可通过 Recompute 从对比记录重算修复。
type Recorder struct {
	storage Storage
	metrics *metrics.Metrics
}

// NewRecorder 创建 Recorder。m 可以为 nil。
func NewRecorder(storage Storage, m *metrics.Metrics) *Recorder {
	return &Recorder{storage: storage, metrics: m}
}

// Record 保存一次对比结果并返回对比记录 ID。
// 任一语音缺少评分（例如已被并发删除）时跳过评分更新，不返回错误。
func (r *Recorder) Record(ctx context.Context, voiceAID, voiceBID, scriptID string, outcome Outcome) (string, error) {
	voiceAID = strings.TrimSpace(voiceAID)
	voiceBID = strings.TrimSpace(voiceBID)
	scriptID = strings.TrimSpace(scriptID)
	switch {
	case voiceAID == "":
		return "", invalid("voiceAId", "不能为空")
	case voiceBID == "":
		return "", invalid("voiceBId", "不能为空")
	case scriptID == "":
		return "", invalid("scriptId", "不能为空")
	case voiceAID == voiceBID:
		return "", invalid("voiceBId", "不能与 voiceAId 相同")
	}

	c := &store.Comparison{
		VoiceAID: voiceAID,
		VoiceBID: voiceBID,
		ScriptID: scriptID,
		WinnerID: outcome.WinnerID(voiceAID, voiceBID),
	}
	if err := r.storage.CreateComparison(ctx, c); err != nil {
		return "", fmt.Errorf("记录对比失败: %w", err)
	}
	r.metrics.Vote(outcome.String())

	if outcome == OutcomeTie {
		return c.ID, nil
	}
	if err := r.applyRating(ctx, voiceAID, voiceBID, outcome); err != nil {
		r.metrics.RatingSkipped()
		logger.Debugf("[arena] 对比 %s 已记录，但评分未更新: %v", c.ID, err)
	}
	return c.ID, nil
}

func (r *Recorder) applyRating(ctx context.Context, voiceAID, voiceBID string, outcome Outcome) error {
	ra, err := r.storage.RatingByVoice(ctx, voiceAID)
	if err != nil {
		return err
	}
	rb, err := r.storage.RatingByVoice(ctx, voiceBID)
	if err != nil {
		return err
	}

	newA, newB := UpdateRatings(ra.Score, rb.Score, outcome.Score())
	if err := r.storage.UpdateRating(ctx, voiceAID, newA); err != nil {
		return err
	}
	if err := r.storage.UpdateRating(ctx, voiceBID, newB); err != nil {
		return err
	}
	logger.Debugf("[arena] %s: %.2f -> %.2f, %s: %.2f -> %.2f", voiceAID, ra.Score, newA, voiceBID, rb.Score, newB)
	return nil
}

// IsValidation 判断 err 是否为输入校验错误。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
