/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package corelog implements the Logger capability on top of logrus: one
// shared logger threaded through the Server, the config layer and the
// worker pool.
package corelog

import (
	log "github.com/sirupsen/logrus"
)

// Level mirrors the protocol's Logger capability levels.
type Level int

// Levels, Trace through Fatal as named by the protocol.
const (
	Trace Level = iota
	Debug
	Info
	Warning
	Error
	Fatal
)

// Category groups log lines by subsystem, as named by the protocol.
type Category string

// Categories, one per subsystem.
const (
	CategoryEventLoop     Category = "EventLoop"
	CategoryNetwork       Category = "Network"
	CategoryChannel       Category = "Channel"
	CategorySecureChannel Category = "SecureChannel"
	CategorySession       Category = "Session"
	CategorySubscription  Category = "Subscription"
	CategoryDiscovery     Category = "Discovery"
	CategoryPubSub        Category = "PubSub"
	CategoryClient        Category = "Client"
)

// Logger is the capability the rest of the stack depends on. A nil *Logger
// is not valid; use New to construct one.
type Logger struct {
	backend *log.Logger
}

// New wraps an existing logrus.Logger. Pass nil to get logrus's standard
// logger.
func New(backend *log.Logger) *Logger {
	if backend == nil {
		backend = log.StandardLogger()
	}
	return &Logger{backend: backend}
}

// Log emits one line at the given level and category.
func (l *Logger) Log(level Level, category Category, format string, args ...interface{}) {
	entry := l.backend.WithField("category", string(category))
	switch level {
	case Trace:
		entry.Tracef(format, args...)
	case Debug:
		entry.Debugf(format, args...)
	case Info:
		entry.Infof(format, args...)
	case Warning:
		entry.Warningf(format, args...)
	case Error:
		entry.Errorf(format, args...)
	case Fatal:
		entry.Fatalf(format, args...)
	}
}

// SetLevel maps the textual level names used by config/CLI flags onto
// logrus.
func SetLevel(backend *log.Logger, name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	if backend == nil {
		backend = log.StandardLogger()
	}
	backend.SetLevel(lvl)
	return nil
}
