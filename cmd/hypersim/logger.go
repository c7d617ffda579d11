// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ava-labs/hypersim/config"
)

type logWrapper struct {
	logger       logging.Logger
	displayLevel zap.AtomicLevel
}

// logFactory writes every logger to stderr and, when a directory is
// configured, to a rotated file named after the logger.
type logFactory struct {
	config config.LogConfig
	lock   sync.Mutex

	loggers map[string]logWrapper
}

func newLogFactory(config config.LogConfig) *logFactory {
	return &logFactory{
		config:  config,
		loggers: make(map[string]logWrapper),
	}
}

func (f *logFactory) Make(name string) (logging.Logger, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if _, ok := f.loggers[name]; ok {
		return nil, fmt.Errorf("logger with name %q already exists", name)
	}
	logLevel, err := logging.ToLevel(f.config.Level)
	if err != nil {
		return nil, err
	}
	displayLevel, err := logging.ToLevel(f.config.DisplayLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ToFormat(f.config.Format, os.Stderr.Fd())
	if err != nil {
		return nil, err
	}

	consoleCore := logging.NewWrappedCore(displayLevel, os.Stderr, format.ConsoleEncoder())
	cores := []logging.WrappedCore{consoleCore}
	if f.config.Directory != "" {
		rw := &lumberjack.Logger{
			Filename:   filepath.Join(f.config.Directory, name+".log"),
			MaxSize:    f.config.MaxSize,  // megabytes
			MaxAge:     f.config.MaxAge,   // days
			MaxBackups: f.config.MaxFiles, // files
			Compress:   f.config.Compress,
		}
		cores = append(cores, logging.NewWrappedCore(logLevel, rw, format.FileEncoder()))
	}

	l := logging.NewLogger(format.WrapPrefix(name), cores...)
	f.loggers[name] = logWrapper{
		logger:       l,
		displayLevel: consoleCore.AtomicLevel,
	}
	return l, nil
}

func (f *logFactory) Close() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, lw := range f.loggers {
		lw.logger.Stop()
	}
	f.loggers = nil
}
