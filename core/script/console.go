package script

import "go.uber.org/zap"

// zapPrinter routes script console output to the runtime logger.
type zapPrinter struct {
	l *zap.Logger
}

func (p zapPrinter) Log(s string)   { p.l.Info(s) }
func (p zapPrinter) Warn(s string)  { p.l.Warn(s) }
func (p zapPrinter) Error(s string) { p.l.Warn("[JS] " + s) }
