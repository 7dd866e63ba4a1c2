package api

import (
	"crypto/subtle"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/iabetor/voicearena/internal/logger"
)

// requestLogger 把每个请求的方法、路径、状态和耗时写入日志。
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			status := c.Response().Status
			elapsed := time.Since(start).Round(time.Millisecond)
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if status >= 500 {
				logger.Warnf("[http] %s %s %d %v id=%s", req.Method, req.URL.Path, status, elapsed, id)
			} else {
				logger.Debugf("[http] %s %s %d %v id=%s", req.Method, req.URL.Path, status, elapsed, id)
			}
			return nil
		}
	}
}

// adminAuth 返回管理接口的 Basic Auth 中间件，password 为空时放行。
func adminAuth(password string) echo.MiddlewareFunc {
	if password == "" {
		logger.Warnf("[api] 未配置管理密码，管理接口不做认证")
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "voicearena",
		Validator: func(_, pass string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1, nil
		},
	})
}
