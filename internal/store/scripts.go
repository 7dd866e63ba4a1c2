package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iabetor/voicearena/internal/logger"
)

const scriptColumns = `id, title, content, category, created_at`

func scanScript(row rowScanner) (*Script, error) {
	var sc Script
	var category sql.NullString
	var createdAt sql.NullTime
	if err := row.Scan(&sc.ID, &sc.Title, &sc.Content, &category, &createdAt); err != nil {
		return nil, err
	}
	sc.Category = category.String
	if createdAt.Valid {
		sc.CreatedAt = createdAt.Time
	}
	return &sc, nil
}

// CreateScript 保存新脚本。
func (s *Store) CreateScript(ctx context.Context, sc *Script) error {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scripts (id, title, content, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.Title, sc.Content, nullable(sc.Category), sc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存脚本失败: %w", err)
	}
	logger.Debugf("[store] 已保存脚本: %s (分类: %s)", sc.Title, sc.Category)
	return nil
}

// GetScript 根据 ID 获取脚本。
func (s *Store) GetScript(ctx context.Context, id string) (*Script, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scriptColumns+` FROM scripts WHERE id = ?`, id)
	sc, err := scanScript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("脚本 %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("查询脚本失败: %w", err)
	}
	return sc, nil
}

// ListScripts 列出全部脚本，按创建时间倒序。
func (s *Store) ListScripts(ctx context.Context) ([]Script, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scriptColumns+` FROM scripts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("查询脚本失败: %w", err)
	}
	defer rows.Close()

	var scripts []Script
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("读取脚本失败: %w", err)
		}
		scripts = append(scripts, *sc)
	}
	return scripts, rows.Err()
}

// DeleteScript 删除脚本及引用它的对比记录。
func (s *Store) DeleteScript(ctx context.Context, id string) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comparisons WHERE script_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("脚本 %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("删除脚本失败: %w", err)
	}
	logger.Infof("[store] 已删除脚本 %s", id)
	return nil
}
