package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientVoices 可用语音少于两个。
	ErrInsufficientVoices = errors.New("至少需要两个启用的语音")
	// ErrNoScripts 没有可用脚本。
	ErrNoScripts = errors.New("没有可用的脚本")
)

// ValidationError 表示调用方可修正的输入错误。
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
