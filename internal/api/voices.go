package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iabetor/voicearena/internal/store"
	"github.com/iabetor/voicearena/internal/tts"
)

type createVoiceRequest struct {
	Provider    string `json:"provider" validate:"required,oneof=elevenlabs cartesia gemini edge tencent"`
	VoiceID     string `json:"voiceId" validate:"required,max=200"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	IsActive    *bool  `json:"isActive"`
}

type importVoiceRequest struct {
	Provider string `json:"provider" validate:"required"`
	VoiceID  string `json:"voiceId" validate:"required"`
	// Name 为空时使用服务商目录中的名称。
	Name     string `json:"name" validate:"max=200"`
	IsActive *bool  `json:"isActive"`
}

type updateVoiceRequest struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=200"`
	VoiceID     *string `json:"voiceId" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,max=1000"`
	IsActive    *bool   `json:"isActive"`
}

func (s *Server) listVoices(c echo.Context) error {
	voices, err := s.store.ListVoices(c.Request().Context())
	if err != nil {
		return err
	}
	if voices == nil {
		voices = []store.Voice{}
	}
	return c.JSON(http.StatusOK, voices)
}

func (s *Server) getVoice(c echo.Context) error {
	v, err := s.store.GetVoice(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) createVoice(c echo.Context) error {
	var req createVoiceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v := &store.Voice{
		Provider:    req.Provider,
		VoiceID:     req.VoiceID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.store.CreateVoice(c.Request().Context(), v); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

// importVoice 从服务商目录中查找语音并入库。
func (s *Server) importVoice(c echo.Context) error {
	var req importVoiceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	lister, err := s.registry.Lister(req.Provider)
	if err != nil {
		return err
	}
	pv, err := lister.GetVoice(ctx, req.VoiceID)
	if err != nil {
		return err
	}

	name := req.Name
	if name == "" {
		name = pv.Name
	}
	v := &store.Voice{
		Provider:    req.Provider,
		VoiceID:     pv.ID,
		Name:        name,
		Description: pv.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.store.CreateVoice(ctx, v); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

func (s *Server) updateVoice(c echo.Context) error {
	var req updateVoiceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := s.store.UpdateVoice(c.Request().Context(), c.Param("id"), store.VoiceUpdate{
		Name:        req.Name,
		VoiceID:     req.VoiceID,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// deleteVoice 删除语音及其评分和对比记录。
func (s *Server) deleteVoice(c echo.Context) error {
	if err := s.store.DeleteVoice(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.Names())
}

func (s *Server) listProviderVoices(c echo.Context) error {
	lister, err := s.registry.Lister(c.Param("provider"))
	if err != nil {
		return err
	}
	voices, err := lister.ListVoices(c.Request().Context())
	if err != nil {
		return err
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	return c.JSON(http.StatusOK, voices)
}

func (s *Server) getProviderVoice(c echo.Context) error {
	lister, err := s.registry.Lister(c.Param("provider"))
	if err != nil {
		return err
	}
	v, err := lister.GetVoice(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}
