package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iabetor/voicearena/internal/logger"
)

const voiceColumns = `v.id, v.provider, v.voice_id, v.name, v.description, v.is_active, v.created_at, r.score`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVoice(row rowScanner) (*Voice, error) {
	var v Voice
	var desc sql.NullString
	var createdAt sql.NullTime
	var score sql.NullFloat64
	if err := row.Scan(&v.ID, &v.Provider, &v.VoiceID, &v.Name, &desc, &v.IsActive, &createdAt, &score); err != nil {
		return nil, err
	}
	v.Description = desc.String
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	if score.Valid {
		s := score.Float64
		v.Rating = &s
	}
	return &v, nil
}

// CreateVoice 创建语音并在同一事务中初始化评分。
func (s *Store) CreateVoice(ctx context.Context, v *Voice) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now()
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO voices (id, provider, voice_id, name, description, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.Provider, v.VoiceID, v.Name, nullable(v.Description), v.IsActive, v.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ratings (voice_id, score, updated_at) VALUES (?, ?, ?)`,
			v.ID, s.initialRating, v.CreatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("语音 %s/%s: %w", v.Provider, v.VoiceID, ErrConflict)
		}
		return fmt.Errorf("创建语音失败: %w", err)
	}

	score := s.initialRating
	v.Rating = &score
	logger.Infof("[store] 已创建语音: %s (%s/%s)", v.Name, v.Provider, v.VoiceID)
	return nil
}

// GetVoice 根据内部 ID 获取语音。
func (s *Store) GetVoice(ctx context.Context, id string) (*Voice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+voiceColumns+` FROM voices v LEFT JOIN ratings r ON r.voice_id = v.id WHERE v.id = ?`, id)
	v, err := scanVoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("语音 %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("查询语音失败: %w", err)
	}
	return v, nil
}

// ListVoices 列出全部语音，按创建时间倒序。
func (s *Store) ListVoices(ctx context.Context) ([]Voice, error) {
	return s.queryVoices(ctx,
		`SELECT `+voiceColumns+` FROM voices v LEFT JOIN ratings r ON r.voice_id = v.id ORDER BY v.created_at DESC`)
}

// ActiveVoices 列出可参与新对局的语音。
func (s *Store) ActiveVoices(ctx context.Context) ([]Voice, error) {
	return s.queryVoices(ctx,
		`SELECT `+voiceColumns+` FROM voices v LEFT JOIN ratings r ON r.voice_id = v.id WHERE v.is_active = 1 ORDER BY v.created_at`)
}

func (s *Store) queryVoices(ctx context.Context, query string, args ...interface{}) ([]Voice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询语音失败: %w", err)
	}
	defer rows.Close()

	var voices []Voice
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("读取语音失败: %w", err)
		}
		voices = append(voices, *v)
	}
	return voices, rows.Err()
}

// UpdateVoice 部分更新语音字段，返回更新后的语音。
func (s *Store) UpdateVoice(ctx context.Context, id string, u VoiceUpdate) (*Voice, error) {
	var sets []string
	var args []interface{}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.VoiceID != nil {
		sets = append(sets, "voice_id = ?")
		args = append(args, *u.VoiceID)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullable(*u.Description))
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, `UPDATE voices SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("语音 %s: %w", id, ErrConflict)
			}
			return nil, fmt.Errorf("更新语音失败: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("语音 %s: %w", id, ErrNotFound)
		}
	}
	return s.GetVoice(ctx, id)
}

// SetVoiceActive 切换语音是否参与新对局。
func (s *Store) SetVoiceActive(ctx context.Context, id string, active bool) (*Voice, error) {
	return s.UpdateVoice(ctx, id, VoiceUpdate{IsActive: &active})
}

// DeleteVoice 删除语音，同时删除其评分和所有引用它的对比记录。
func (s *Store) DeleteVoice(ctx context.Context, id string) error {
	var removed int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM comparisons WHERE voice_a_id = ? OR voice_b_id = ?`, id, id)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		if _, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE voice_id = ?`, id); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM voices WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("语音 %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("删除语音失败: %w", err)
	}
	logger.Infof("[store] 已删除语音 %s 及 %d 条对比记录", id, removed)
	return nil
}
