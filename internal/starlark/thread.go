package starlark

import (
	"log/slog"

	"go.starlark.net/starlark"
)

// NewThread returns a fresh thread for one execution. print() output goes
// to logger at info level. Threads are never reused: a cancelled thread
// stays cancelled.
func NewThread(name string, logger *slog.Logger) *starlark.Thread {
	if logger == nil {
		logger = slog.Default()
	}
	return &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			logger.Info(msg, slog.String("thread", thread.Name))
		},
	}
}
