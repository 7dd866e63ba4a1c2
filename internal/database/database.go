package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/voicearena/internal/logger"
	_ "modernc.org/sqlite"
)

// DB 是统一的 SQLite 数据库连接。
// 语音、脚本、评分和对比记录共享同一个数据库文件。
type DB struct {
	*sql.DB
	path string
}

// Open 打开或创建数据库。
// dbPath 为空时使用默认路径 ~/.voicearena/voicearena.db；":memory:" 打开内存库（测试用）。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			dbPath = filepath.Join(home, ".voicearena", "voicearena.db")
		} else {
			dbPath = "./voicearena.db"
		}
	}

	// foreign_keys 是连接级设置，通过 DSN 让连接池中每个连接都生效
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if dbPath == ":memory:" {
		// 每个连接都是独立的内存库，必须限制为单连接
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	logger.Infof("[database] 数据库已打开: %s", dbPath)

	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 运行数据库迁移。
func (db *DB) Migrate() error {
	migrations := []string{
		// 语音表
		`CREATE TABLE IF NOT EXISTS voices (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			voice_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(provider, voice_id)
		)`,
		// 评分表，与语音一一对应
		`CREATE TABLE IF NOT EXISTS ratings (
			voice_id TEXT PRIMARY KEY REFERENCES voices(id) ON DELETE CASCADE,
			score REAL NOT NULL DEFAULT 1500.0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// 脚本表
		`CREATE TABLE IF NOT EXISTS scripts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			category TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// 对比记录表：只追加，不加外键，投票记录不依赖语音是否仍存在
		`CREATE TABLE IF NOT EXISTS comparisons (
			id TEXT PRIMARY KEY,
			voice_a_id TEXT NOT NULL,
			voice_b_id TEXT NOT NULL,
			script_id TEXT NOT NULL,
			winner_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_voices_active ON voices(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_score ON ratings(score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_comparisons_voice_a ON comparisons(voice_a_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comparisons_voice_b ON comparisons(voice_b_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comparisons_script ON comparisons(script_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comparisons_created ON comparisons(created_at)`,
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[database] 创建索引失败: %v", err)
		}
	}

	logger.Info("[database] 数据库迁移完成")
	return nil
}

// WithTx 在事务中执行 fn，fn 返回错误时回滚。
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warnf("[database] 事务回滚失败: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
