// logger.go: zerolog adapter for the driver loader Logger interface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	driverloader "github.com/agilira/go-driverloader"
)

type zerologAdapter struct {
	logger zerolog.Logger
}

// newLogger builds a console logger. verbosity 0 logs warnings and errors,
// 1 adds info and 2 or more adds debug.
func newLogger(out io.Writer, verbosity int) driverloader.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbosity >= 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	return &zerologAdapter{logger: zerolog.New(console).Level(level).With().Timestamp().Logger()}
}

func (z *zerologAdapter) Debug(msg string, args ...any) { z.logger.Debug().Fields(args).Msg(msg) }
func (z *zerologAdapter) Info(msg string, args ...any)  { z.logger.Info().Fields(args).Msg(msg) }
func (z *zerologAdapter) Warn(msg string, args ...any)  { z.logger.Warn().Fields(args).Msg(msg) }
func (z *zerologAdapter) Error(msg string, args ...any) { z.logger.Error().Fields(args).Msg(msg) }

func (z *zerologAdapter) With(args ...any) driverloader.Logger {
	return &zerologAdapter{logger: z.logger.With().Fields(args).Logger()}
}
