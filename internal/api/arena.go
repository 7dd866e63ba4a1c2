package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iabetor/voicearena/internal/arena"
	"github.com/iabetor/voicearena/internal/store"
)

type comparisonRequest struct {
	VoiceAID string  `json:"voiceAId" validate:"required"`
	VoiceBID string  `json:"voiceBId" validate:"required"`
	ScriptID string  `json:"scriptId" validate:"required"`
	WinnerID *string `json:"winnerId"`
}

type comparisonResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

type ttsRequest struct {
	VoiceID  string `json:"voiceId" validate:"required"`
	ScriptID string `json:"scriptId"`
	Text     string `json:"text" validate:"required_without=ScriptID"`
}

// getMatchup 随机选出两个启用的语音和一段脚本。
func (s *Server) getMatchup(c echo.Context) error {
	ctx := c.Request().Context()
	voices, err := s.store.ActiveVoices(ctx)
	if err != nil {
		return err
	}
	scripts, err := s.store.ListScripts(ctx)
	if err != nil {
		return err
	}
	m, err := s.selector.Select(voices, scripts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// createComparison 记录一次投票。winnerId 为 null、空串或 "tie" 表示平局。
func (s *Server) createComparison(c echo.Context) error {
	var req comparisonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	outcome, err := arena.ParseOutcome(req.VoiceAID, req.VoiceBID, req.WinnerID)
	if err != nil {
		return err
	}
	id, err := s.recorder.Record(c.Request().Context(), req.VoiceAID, req.VoiceBID, req.ScriptID, outcome)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comparisonResponse{ID: id, Outcome: outcome.String()})
}

func (s *Server) getLeaderboard(c echo.Context) error {
	entries, err := s.store.Leaderboard(c.Request().Context())
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// synthesize 为语音朗读脚本或自由文本。
// 脚本朗读走缓存：命中时 302 到缓存地址，未命中时直接返回新生成的音频。
// 自由文本不缓存。
func (s *Server) synthesize(c echo.Context) error {
	var req ttsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	voice, err := s.store.GetVoice(ctx, req.VoiceID)
	if err != nil {
		return err
	}
	synth := func(text string) func(ctx context.Context) ([]byte, string, error) {
		return func(ctx context.Context) ([]byte, string, error) {
			return s.registry.Synthesize(ctx, voice.Provider, voice.VoiceID, text)
		}
	}

	if req.ScriptID == "" {
		text := strings.TrimSpace(req.Text)
		if err := s.checkTextLength(text); err != nil {
			return err
		}
		data, contentType, err := s.cache.Generate(ctx, synth(text))
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return c.Blob(http.StatusOK, contentType, data)
	}

	script, err := s.store.GetScript(ctx, req.ScriptID)
	if err != nil {
		return err
	}
	if err := s.checkTextLength(script.Content); err != nil {
		return err
	}
	res, err := s.cache.GetOrGenerate(ctx, voice.Provider, voice.VoiceID, script.ID, synth(script.Content))
	if err != nil {
		return err
	}
	if res.Hit {
		c.Response().Header().Set("X-Cache", "HIT")
		return c.Redirect(http.StatusFound, res.URL)
	}
	c.Response().Header().Set("X-Cache", "MISS")
	if res.URL != "" {
		c.Response().Header().Set("Content-Location", res.URL)
	}
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

func (s *Server) checkTextLength(text string) error {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return &arena.ValidationError{Field: "text", Msg: "不能为空"}
	}
	if limit := s.maxTextLength(); n > limit {
		return &arena.ValidationError{Field: "text", Msg: fmt.Sprintf("长度不能超过 %d 个字符", limit)}
	}
	return nil
}

// serveAudio 输出缓存的音频。缓存条目不可变，允许客户端长期缓存。
func (s *Server) serveAudio(c echo.Context) error {
	key := c.Param("*")
	data, contentType, err := s.cache.Load(c.Request().Context(), key)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, contentType, data)
}
