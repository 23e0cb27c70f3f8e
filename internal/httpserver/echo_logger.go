package httpserver

import (
	"fmt"
	"io"

	echolog "github.com/labstack/gommon/log"

	"github.com/wasatchbitworks/birdworks-live/internal/logger"
)

// echoLogger routes echo's own messages (startup, errors from the default
// handler) to the module logger. Output, prefix and level are owned by the
// logger configuration, so the setters are no-ops.
type echoLogger struct {
	log logger.Logger
}

func newEchoLogger(log logger.Logger) *echoLogger {
	return &echoLogger{log: log}
}

func (a *echoLogger) Output() io.Writer         { return io.Discard }
func (a *echoLogger) SetOutput(io.Writer)       {}
func (a *echoLogger) Prefix() string            { return "" }
func (a *echoLogger) SetPrefix(string)          {}
func (a *echoLogger) Level() echolog.Lvl        { return echolog.INFO }
func (a *echoLogger) SetLevel(echolog.Lvl)      {}
func (a *echoLogger) SetHeader(string)          {}
func (a *echoLogger) Print(i ...any)            { a.log.Info(fmt.Sprint(i...)) }
func (a *echoLogger) Printf(f string, v ...any) { a.log.Info(fmt.Sprintf(f, v...)) }
func (a *echoLogger) Printj(j echolog.JSON)     { a.log.Info("echo", logger.Any("data", j)) }
func (a *echoLogger) Debug(i ...any)            { a.log.Debug(fmt.Sprint(i...)) }
func (a *echoLogger) Debugf(f string, v ...any) { a.log.Debug(fmt.Sprintf(f, v...)) }
func (a *echoLogger) Debugj(j echolog.JSON)     { a.log.Debug("echo", logger.Any("data", j)) }
func (a *echoLogger) Info(i ...any)             { a.log.Info(fmt.Sprint(i...)) }
func (a *echoLogger) Infof(f string, v ...any)  { a.log.Info(fmt.Sprintf(f, v...)) }
func (a *echoLogger) Infoj(j echolog.JSON)      { a.log.Info("echo", logger.Any("data", j)) }
func (a *echoLogger) Warn(i ...any)             { a.log.Warn(fmt.Sprint(i...)) }
func (a *echoLogger) Warnf(f string, v ...any)  { a.log.Warn(fmt.Sprintf(f, v...)) }
func (a *echoLogger) Warnj(j echolog.JSON)      { a.log.Warn("echo", logger.Any("data", j)) }
func (a *echoLogger) Error(i ...any)            { a.log.Error(fmt.Sprint(i...)) }
func (a *echoLogger) Errorf(f string, v ...any) { a.log.Error(fmt.Sprintf(f, v...)) }
func (a *echoLogger) Errorj(j echolog.JSON)     { a.log.Error("echo", logger.Any("data", j)) }

// Fatal and Panic log at error level and panic; the recover middleware or
// the serve command turns that into a shutdown.
func (a *echoLogger) Fatal(i ...any) { a.Panic(i...) }

func (a *echoLogger) Fatalf(f string, v ...any) { a.Panicf(f, v...) }

func (a *echoLogger) Fatalj(j echolog.JSON) { a.Panicj(j) }

func (a *echoLogger) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.log.Error(msg)
	panic(msg)
}

func (a *echoLogger) Panicf(f string, v ...any) {
	msg := fmt.Sprintf(f, v...)
	a.log.Error(msg)
	panic(msg)
}

func (a *echoLogger) Panicj(j echolog.JSON) {
	a.log.Error("echo panic", logger.Any("data", j))
	panic(fmt.Sprintf("%v", j))
}
