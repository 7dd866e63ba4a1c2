package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iabetor/voicearena/internal/llm"
	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/rss"
	"github.com/iabetor/voicearena/internal/store"
	"github.com/iabetor/voicearena/internal/translate"
)

type createScriptRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"max=50"`
}

type generateScriptRequest struct {
	Category string `json:"category" validate:"required"`
	Topic    string `json:"topic" validate:"max=200"`
	SaveToDB bool   `json:"saveToDb"`
}

type generateScriptResponse struct {
	Title    string        `json:"title"`
	Content  string        `json:"content"`
	Category string        `json:"category"`
	Script   *store.Script `json:"script,omitempty"`
}

type importFeedRequest struct {
	URL      string `json:"url" validate:"required,url"`
	Category string `json:"category" validate:"max=50"`
	Keyword  string `json:"keyword" validate:"max=100"`
	Limit    int    `json:"limit" validate:"gte=0,lte=20"`
}

type translateScriptRequest struct {
	Target string `json:"target" validate:"required,max=20"`
	Source string `json:"source" validate:"max=20"`
	// Save 为 true 时把译文另存为新脚本。
	Save bool `json:"save"`
}

type translateScriptResponse struct {
	Content string        `json:"content"`
	Target  string        `json:"target"`
	Script  *store.Script `json:"script,omitempty"`
}

type importFeedResponse struct {
	Feed    string         `json:"feed"`
	Scripts []store.Script `json:"scripts"`
}

func (s *Server) listScripts(c echo.Context) error {
	scripts, err := s.store.ListScripts(c.Request().Context())
	if err != nil {
		return err
	}
	if scripts == nil {
		scripts = []store.Script{}
	}
	return c.JSON(http.StatusOK, scripts)
}

func (s *Server) createScript(c echo.Context) error {
	var req createScriptRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if err := s.checkTextLength(content); err != nil {
		return err
	}
	sc := &store.Script{
		Title:    strings.TrimSpace(req.Title),
		Content:  content,
		Category: req.Category,
	}
	if err := s.store.CreateScript(c.Request().Context(), sc); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sc)
}

func (s *Server) deleteScript(c echo.Context) error {
	if err := s.store.DeleteScript(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// generateScript 用大模型生成一段客服场景脚本，saveToDb 为 true 时直接入库。
func (s *Server) generateScript(c echo.Context) error {
	var req generateScriptRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.generator == nil {
		return llm.ErrNotConfigured
	}
	category, err := llm.ParseCategory(req.Category)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	gen, err := s.generator.Generate(ctx, category, req.Topic)
	if err != nil {
		return err
	}
	resp := generateScriptResponse{Title: gen.Title, Content: gen.Content, Category: string(category)}
	if !req.SaveToDB {
		return c.JSON(http.StatusOK, resp)
	}

	sc := &store.Script{Title: gen.Title, Content: gen.Content, Category: string(category)}
	if err := s.store.CreateScript(ctx, sc); err != nil {
		return err
	}
	resp.Script = sc
	return c.JSON(http.StatusCreated, resp)
}

// importFeed 把订阅源条目逐条保存为脚本。
func (s *Server) importFeed(c echo.Context) error {
	var req importFeedRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	title, drafts, err := s.importer.Import(ctx, req.URL, rss.Options{
		Limit:    req.Limit,
		Keyword:  req.Keyword,
		Category: req.Category,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	saved := make([]store.Script, 0, len(drafts))
	for _, d := range drafts {
		sc := &store.Script{Title: d.Title, Content: d.Content, Category: d.Category}
		if err := s.store.CreateScript(ctx, sc); err != nil {
			return err
		}
		saved = append(saved, *sc)
	}
	logger.Infof("[api] 从订阅源 %s 导入 %d 个脚本", title, len(saved))
	return c.JSON(http.StatusCreated, importFeedResponse{Feed: title, Scripts: saved})
}

// translateScript 翻译已有脚本，save 为 true 时另存为新脚本，原脚本和它的对比记录不变。
func (s *Server) translateScript(c echo.Context) error {
	var req translateScriptRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.translator == nil {
		return translate.ErrNotConfigured
	}
	ctx := c.Request().Context()

	src, err := s.store.GetScript(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	text, err := s.translator.Translate(ctx, src.Content, req.Target, req.Source)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	target := translate.NormalizeLang(req.Target)
	resp := translateScriptResponse{Content: text, Target: target}
	if !req.Save {
		return c.JSON(http.StatusOK, resp)
	}

	sc := &store.Script{
		Title:    fmt.Sprintf("%s [%s]", src.Title, target),
		Content:  text,
		Category: src.Category,
	}
	if err := s.checkTextLength(sc.Content); err != nil {
		return err
	}
	if err := s.store.CreateScript(ctx, sc); err != nil {
		return err
	}
	resp.Script = sc
	return c.JSON(http.StatusCreated, resp)
}
