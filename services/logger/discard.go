package logsvc

import (
	"io"
	"log"

	"github.com/trezcool/lms-admin/core"
)

type discardLogger struct {
	std *log.Logger
}

var _ core.Logger = (*discardLogger)(nil)

// NewDiscardLogger returns a Logger that drops everything but Fatal. Meant for tests.
func NewDiscardLogger() core.Logger {
	return &discardLogger{std: log.New(io.Discard, "", 0)}
}

func (l discardLogger) Debug(string, ...interface{}) {}
func (l discardLogger) Info(string, ...interface{})  {}
func (l discardLogger) Warn(string, ...interface{})  {}
func (l discardLogger) Error(string, ...interface{}) {}

func (l discardLogger) Fatal(msg string, _ ...interface{}) {
	l.std.Fatal(msg)
}
