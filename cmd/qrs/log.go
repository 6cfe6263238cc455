// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"upspin.io/config"
	upLog "upspin.io/log"
	"upspin.io/shutdown"
)

// logf logs a formatted log message to standard error,
// or to $HOME/.qrs/log/qrs.log after logToFile.
func logf(format string, args ...interface{}) {
	logger.Lock()
	defer logger.Unlock()
	logger.Printf(format, args...)
}

// logger is the log.Logger used by logf.
var logger struct {
	sync.Mutex
	*log.Logger
}

func init() {
	logger.Logger = log.New(os.Stderr, "qrs: ", log.LstdFlags)
}

// logToFile redirects logf, the Upspin logger and the standard logger to
// $HOME/.qrs/log/qrs.log. If the file cannot be opened, logging stays on
// standard error.
func logToFile() {
	l, err := newLogger()
	if err != nil {
		logf("%v", err)
		return
	}
	logger.Lock()
	logger.Logger = l
	logger.Unlock()
}

// newLogger initializes a log.Logger that writes to
// $HOME/.qrs/log/qrs.log and redirects the Upspin logger and the
// standard logger to that file.
func newLogger() (*log.Logger, error) {
	home, err := config.Homedir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".qrs", "log")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	file := filepath.Join(dir, "qrs.log")
	const flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	f, err := os.OpenFile(file, flags, 0600)
	if err != nil {
		return nil, err
	}
	shutdown.Handle(func() {
		f.Close()
	})
	upLog.SetOutput(f)
	log.SetOutput(f)
	return log.New(f, "", log.LstdFlags), nil
}
