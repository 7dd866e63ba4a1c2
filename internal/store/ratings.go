package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RatingByVoice 获取语音的当前评分。
func (s *Store) RatingByVoice(ctx context.Context, voiceID string) (*Rating, error) {
	var r Rating
	var updatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT voice_id, score, updated_at FROM ratings WHERE voice_id = ?`, voiceID,
	).Scan(&r.VoiceID, &r.Score, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("语音 %s 的评分: %w", voiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("查询评分失败: %w", err)
	}
	if updatedAt.Valid {
		r.UpdatedAt = updatedAt.Time
	}
	return &r, nil
}

// UpdateRating 覆盖写入评分。并发投票之间不做版本控制，后写者胜出。
func (s *Store) UpdateRating(ctx context.Context, voiceID string, score float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ratings SET score = ?, updated_at = ? WHERE voice_id = ?`, score, now(), voiceID)
	if err != nil {
		return fmt.Errorf("更新评分失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("语音 %s 的评分: %w", voiceID, ErrNotFound)
	}
	return nil
}

// ReplaceRatings 在一个事务中覆盖多条评分，用于按历史记录重算。
func (s *Store) ReplaceRatings(ctx context.Context, scores map[string]float64) error {
	ts := now()
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for voiceID, score := range scores {
			if _, err := tx.ExecContext(ctx,
				`UPDATE ratings SET score = ?, updated_at = ? WHERE voice_id = ?`, score, ts, voiceID,
			); err != nil {
				return fmt.Errorf("更新评分失败: %w", err)
			}
		}
		return nil
	})
}

// CreateComparison 追加一条对比记录。不校验语音或脚本是否存在。
func (s *Store) CreateComparison(ctx context.Context, c *Comparison) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	var winner interface{}
	if c.WinnerID != nil {
		winner = *c.WinnerID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comparisons (id, voice_a_id, voice_b_id, script_id, winner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.VoiceAID, c.VoiceBID, c.ScriptID, winner, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存对比记录失败: %w", err)
	}
	return nil
}

// ListComparisons 按时间顺序列出全部对比记录。
func (s *Store) ListComparisons(ctx context.Context) ([]Comparison, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, voice_a_id, voice_b_id, script_id, winner_id, created_at
		 FROM comparisons ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("查询对比记录失败: %w", err)
	}
	defer rows.Close()

	var out []Comparison
	for rows.Next() {
		var c Comparison
		var winner sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.VoiceAID, &c.VoiceBID, &c.ScriptID, &winner, &createdAt); err != nil {
			return nil, fmt.Errorf("读取对比记录失败: %w", err)
		}
		if winner.Valid {
			w := winner.String
			c.WinnerID = &w
		}
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountComparisons 返回对比记录总数。
func (s *Store) CountComparisons(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comparisons`).Scan(&n); err != nil {
		return 0, fmt.Errorf("统计对比记录失败: %w", err)
	}
	return n, nil
}

// Leaderboard 按评分倒序返回排行榜，附带胜负平统计。
func (s *Store) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voiceColumns+`,
			(SELECT COUNT(*) FROM comparisons c WHERE c.winner_id = v.id) AS wins,
			(SELECT COUNT(*) FROM comparisons c
			  WHERE (c.voice_a_id = v.id OR c.voice_b_id = v.id)
			    AND c.winner_id IS NOT NULL AND c.winner_id <> v.id) AS losses,
			(SELECT COUNT(*) FROM comparisons c
			  WHERE (c.voice_a_id = v.id OR c.voice_b_id = v.id) AND c.winner_id IS NULL) AS ties
		FROM ratings r JOIN voices v ON v.id = r.voice_id
		ORDER BY r.score DESC, v.name`)
	if err != nil {
		return nil, fmt.Errorf("查询排行榜失败: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var v Voice
		var desc sql.NullString
		var createdAt sql.NullTime
		var score sql.NullFloat64
		var e LeaderboardEntry
		if err := rows.Scan(&v.ID, &v.Provider, &v.VoiceID, &v.Name, &desc, &v.IsActive, &createdAt, &score,
			&e.Wins, &e.Losses, &e.Ties); err != nil {
			return nil, fmt.Errorf("读取排行榜失败: %w", err)
		}
		v.Description = desc.String
		if createdAt.Valid {
			v.CreatedAt = createdAt.Time
		}
		e.Score = score.Float64
		rating := e.Score
		v.Rating = &rating
		e.Voice = v
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
