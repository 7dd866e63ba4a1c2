// Package store 提供语音、脚本、评分和对比记录的 SQLite 持久化。
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/iabetor/voicearena/internal/database"
)

var (
	// ErrNotFound 表示引用的语音、脚本或评分不存在。
	ErrNotFound = errors.New("记录不存在")
	// ErrConflict 表示违反唯一约束，例如同一服务商下重复的 voice id。
	ErrConflict = errors.New("记录已存在")
)

// DefaultInitialRating 新语音的初始评分。
const DefaultInitialRating = 1500.0

// Voice 表示一个可参与对比的合成语音。
type Voice struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	VoiceID     string    `json:"voiceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	// Rating 查询时联表带出，不参与写入。
	Rating *float64 `json:"rating,omitempty"`
}

// VoiceUpdate 描述语音的部分更新，nil 字段保持不变。
type VoiceUpdate struct {
	Name        *string
	VoiceID     *string
	Description *string
	IsActive    *bool
}

// Script 表示一段用于朗读对比的文本。
type Script struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rating 是语音的当前评分，每个语音恰好一条。
type Rating struct {
	VoiceID   string    `json:"voiceId"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comparison 是一次投票的不可变记录。WinnerID 为 nil 表示平局。
type Comparison struct {
	ID        string    `json:"id"`
	VoiceAID  string    `json:"voiceAId"`
	VoiceBID  string    `json:"voiceBId"`
	ScriptID  string    `json:"scriptId"`
	WinnerID  *string   `json:"winnerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeaderboardEntry 排行榜中的一行。
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	Voice  Voice   `json:"voice"`
	Score  float64 `json:"score"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Ties   int     `json:"ties"`
}

// Store 基于共享数据库连接实现各实体的增删改查。
type Store struct {
	db            *database.DB
	initialRating float64
}

// New 创建 Store。initialRating 为 0 时使用 DefaultInitialRating。
func New(db *database.DB, initialRating float64) *Store {
	if initialRating == 0 {
		initialRating = DefaultInitialRating
	}
	return &Store{db: db, initialRating: initialRating}
}

// InitialRating 返回新语音的初始评分。
func (s *Store) InitialRating() float64 {
	return s.initialRating
}

// isUniqueViolation 判断 SQLite 唯一约束错误。
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func now() time.Time {
	return time.Now().UTC()
}
