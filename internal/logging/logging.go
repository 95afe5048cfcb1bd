//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package logging configures zap for the synth CLI and for lambda handlers.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogOpts struct {
	Verbose bool

	// Encoding is either "console" (default) or "json"
	Encoding string
}

func (opts LogOpts) Encoder() zapcore.Encoder {
	switch opts.Encoding {
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console", "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		panic(fmt.Errorf("unknown encoding %q", opts.Encoding))
	}
}

// Level is debug if verbose, LOG_LEVEL if defined, info otherwise.
func (opts LogOpts) Level() zapcore.Level {
	if opts.Verbose {
		return zap.DebugLevel
	}

	if env, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if lvl, err := zapcore.ParseLevel(env); err == nil {
			return lvl
		}
	}

	return zap.InfoLevel
}

func (opts LogOpts) NewCore(w zapcore.WriteSyncer) zapcore.Core {
	return zapcore.NewCore(opts.Encoder(), w, zap.NewAtomicLevelAt(opts.Level()))
}

// NewLogger writes to stderr, stdout is reserved for cdk (cloud assembly path).
func (opts LogOpts) NewLogger() *zap.Logger {
	return zap.New(opts.NewCore(os.Stderr))
}

// Lambda is the logger used by lambda handlers, json lines into CloudWatch.
func Lambda(name string) *zap.Logger {
	opts := LogOpts{Encoding: "json"}
	return zap.New(opts.NewCore(os.Stdout)).Named(name).With(
		zap.String("function", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")),
	)
}
