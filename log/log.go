/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// Package log provides the go-logging backends used by the driver: syslog,
// which tags every line with the ID of the calling goroutine, and an
// optional rotating log file.
package log

import (
	"fmt"
	"io"
	slog "log/syslog"
	"runtime"
	"strings"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultLevel = logging.INFO
	format       = `%{level}: %{shortpkg}.%{shortfunc}: %{message}`
)

type Syslog struct {
	writer *slog.Writer
}

func NewSyslog(prefix string) (*Syslog, error) {
	w, err := slog.New(slog.LOG_CRIT|slog.LOG_DAEMON, prefix)
	if err != nil {
		return nil, err
	}

	return &Syslog{writer: w}, nil
}

func (r *Syslog) Log(level logging.Level, calldepth int, record *logging.Record) error {
	line := fmt.Sprintf("%v (TID=%v)", record.Formatted(calldepth+1), goroutineID())
	switch level {
	case logging.CRITICAL:
		return r.writer.Crit(line)
	case logging.ERROR:
		return r.writer.Err(line)
	case logging.WARNING:
		return r.writer.Warning(line)
	case logging.NOTICE:
		return r.writer.Notice(line)
	case logging.INFO:
		return r.writer.Info(line)
	case logging.DEBUG:
		return r.writer.Debug(line)
	default:
		return fmt.Errorf("unexpected log level: %v", level)
	}
}

func (r *Syslog) Close() error {
	return r.writer.Close()
}

func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
}

// FileConfig describes the rotation policy of the log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFile returns a rotating log file writer. Zero values of the rotation
// policy fall back to 100 MB, 3 backups and 28 days.
func NewFile(c FileConfig) io.WriteCloser {
	l := &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   c.Compress,
	}
	if c.MaxSizeMB > 0 {
		l.MaxSize = c.MaxSizeMB
	}
	if c.MaxBackups > 0 {
		l.MaxBackups = c.MaxBackups
	}
	if c.MaxAgeDays > 0 {
		l.MaxAge = c.MaxAgeDays
	}

	return l
}

// Init installs the formatted backends as the default go-logging backend and
// returns the leveled backend so that the caller can change the level later.
// The writer w is optional.
func Init(level logging.Level, syslog logging.Backend, w io.Writer) logging.LeveledBackend {
	formatter := logging.MustStringFormatter(format)

	backends := []logging.Backend{}
	if syslog != nil {
		backends = append(backends, logging.NewBackendFormatter(syslog, formatter))
	}
	if w != nil {
		backends = append(backends, logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), formatter))
	}

	leveled := logging.MultiLogger(backends...)
	// Set log level for all modules
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)

	return leveled
}

// ParseLevel returns DefaultLevel if level is not a valid level name.
func ParseLevel(level string) (logging.Level, error) {
	ret, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		return DefaultLevel, err
	}

	return ret, nil
}
