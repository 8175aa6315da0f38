package main

import (
	"context"
	"strings"

	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/internal/config"
)

// newLogger builds the process logger. Interactive runs without a log file
// discard everything.
func newLogger(lc config.Log, verbose, interactive bool) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	atom := zap.NewAtomicLevelAt(lvl)

	if interactive && lc.File == "" {
		return zap.NewNop(), atom, nil
	}

	zc := zap.NewProductionConfig()
	zc.Level = atom
	if lc.File != "" {
		zc.OutputPaths = []string{lc.File}
	}
	l, err := zc.Build()
	if err != nil {
		return nil, atom, err
	}
	return l, atom, nil
}

type fromEvent[V any] interface {
	From(e *capitan.Event) (V, bool)
}

// field reads one event field into a zap field.
type field func(e *capitan.Event) (zap.Field, bool)

func read[V any](name string, k fromEvent[V], to func(string, V) zap.Field) field {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := k.From(e)
		if !ok {
			return zap.Skip(), false
		}
		return to(name, v), true
	}
}

var readers = []field{
	read("name", harvest.KeyName, zap.String),
	read("view", harvest.KeyView, zap.String),
	read("rank", harvest.KeyRank, zap.String),
	read("key", harvest.KeyKey, zap.String),
	read("query", harvest.KeyQuery, zap.String),
	read("param", harvest.KeyParam, zap.String),
	read("error", harvest.KeyError, zap.String),
	read("generation", harvest.KeyGeneration, zap.Int),
	read("count", harvest.KeyCount, zap.Int),
	read("tick", harvest.KeyTick, zap.Int),
	read("interval", harvest.KeyInterval, zap.Duration),
	read("debounce", harvest.KeyDebounce, zap.Duration),
	read("stage", config.KeyStage, zap.String),
	read("old_state", config.KeyOldState, zap.String),
	read("new_state", config.KeyNewState, zap.String),
	read("state", config.KeyState, zap.String),
}

// bridge logs every dashboard and config signal through l. Failures and
// rejections log at warn, the rest at debug.
func bridge(l *zap.Logger) {
	signals := append(append([]capitan.Signal{}, harvest.Signals...), config.Signals...)
	for _, sig := range signals {
		name := sig.Name()
		warn := strings.HasSuffix(name, ".failed") || strings.HasSuffix(name, ".rejected")
		capitan.Hook(sig, func(_ context.Context, e *capitan.Event) {
			fields := eventFields(e)
			if warn {
				l.Warn(name, fields...)
				return
			}
			l.Debug(name, fields...)
		})
	}
}

func eventFields(e *capitan.Event) []zap.Field {
	var out []zap.Field
	for _, f := range readers {
		if zf, ok := f(e); ok {
			out = append(out, zf)
		}
	}
	return out
}
