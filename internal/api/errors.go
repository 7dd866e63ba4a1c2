package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iabetor/voicearena/internal/arena"
	"github.com/iabetor/voicearena/internal/audio"
	"github.com/iabetor/voicearena/internal/llm"
	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/store"
	"github.com/iabetor/voicearena/internal/translate"
	"github.com/iabetor/voicearena/internal/tts"
)

// errorResponse 是所有错误响应的 JSON 结构。
type errorResponse struct {
	Error string `json:"error"`
}

// statusOf 把领域错误映射为 HTTP 状态码。
func statusOf(err error) int {
	var he *echo.HTTPError
	var ve *arena.ValidationError
	var fe validator.ValidationErrors
	var pe *tts.ProviderError

	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.As(err, &ve), errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.Is(err, arena.ErrInsufficientVoices), errors.Is(err, arena.ErrNoScripts):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrInvalidCategory), errors.Is(err, tts.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, tts.ErrVoiceNotFound), errors.Is(err, audio.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, tts.ErrListUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, tts.ErrNotConfigured), errors.Is(err, llm.ErrNotConfigured), errors.Is(err, translate.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &pe), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler 统一错误输出为 {"error": msg}。
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusOf(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
	}
	var fe validator.ValidationErrors
	if errors.As(err, &fe) {
		msg = describeValidation(fe)
	}

	if code >= http.StatusInternalServerError {
		logger.Errorf("[api] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		logger.Warnf("[api] 写入错误响应失败: %v", err)
	}
}
