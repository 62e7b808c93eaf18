// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap loggers used across parley.
//
// Components accept a *zap.Logger and call OrNop on it, so tests and
// library callers can pass nil. Tokens and message bodies are never
// logged; log conversation ids, modes, status codes and durations.
package logging

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/parley/internal/util"
)

// Options configures a logger.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Encoding is console or json.
	Encoding string
	// Output is "stderr", "stdout" or a file path.
	Output string
	// Development enables stack traces on warnings and caller info.
	Development bool
	// Name is attached to every entry as the logger name.
	Name string
}

// New builds a logger from opts. File outputs get their parent directory
// created first.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(strings.TrimSpace(opts.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := strings.ToLower(opts.Encoding)
	if encoding != "json" {
		encoding = "console"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	if encoding == "console" {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	}
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "time"
	encoderCfg.MessageKey = "msg"

	output := opts.Output
	if output == "" {
		output = "stderr"
	}
	if output != "stderr" && output != "stdout" {
		if err := util.EnsureDir(filepath.Dir(output)); err != nil {
			return nil, err
		}
	}

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       opts.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !opts.Development,
		DisableStacktrace: !opts.Development,
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(opts.Name); name != "" {
		logger = logger.Named(name)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
