//go:build !cgo

package hal

import (
	"errors"

	"go.uber.org/zap"
)

// WindowConfig controls the desktop window.
type WindowConfig struct {
	Width  int
	Height int
	Scale  int
	TPS    int
	Title  string
	Logger *zap.Logger
}

func RunWindow(_ func(h HAL) func() error, _ WindowConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
