package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// New builds a console logger for server and CLI processes.
func New(component string) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
}

// NewFile builds a logger writing to a file. The TUI owns the terminal,
// so its loggers must never touch stdout or stderr.
func NewFile(component, path string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(file).With().Timestamp().Str("component", component).Logger()
	return logger, file, nil
}
