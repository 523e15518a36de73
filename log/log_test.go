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

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/op/go-logging"
)

func TestParseLevel(t *testing.T) {
	samples := []struct {
		Level    string
		Expected logging.Level
		Error    bool
	}{
		{"debug", logging.DEBUG, false},
		{"INFO", logging.INFO, false},
		{"Warning", logging.WARNING, false},
		{"critical", logging.CRITICAL, false},
		{"verbose", DefaultLevel, true},
		{"", DefaultLevel, true},
	}

	for _, v := range samples {
		level, err := ParseLevel(v.Level)
		if (err != nil) != v.Error {
			t.Fatalf("unexpected error for %q: %v", v.Level, err)
		}
		if level != v.Expected {
			t.Fatalf("unexpected level for %q: expected=%v, actual=%v", v.Level, v.Expected, level)
		}
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	leveled := Init(logging.INFO, nil, &buf)
	logger := logging.MustGetLogger("logtest")

	logger.Debug("hidden message")
	logger.Info("visible message")
	out := buf.String()
	if !strings.Contains(out, "INFO: ") || !strings.Contains(out, "visible message") {
		t.Fatalf("unexpected log output: %q", out)
	}
	if strings.Contains(out, "hidden message") {
		t.Fatalf("debug message is logged at the info level: %q", out)
	}

	leveled.SetLevel(logging.DEBUG, "")
	logger.Debug("debug message")
	if !strings.Contains(buf.String(), "DEBUG: ") {
		t.Fatalf("debug message is not logged after changing the level: %q", buf.String())
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ofdriver.log")
	w := NewFile(FileConfig{Path: path})

	if _, err := w.Write([]byte("first line\n")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(data) != "first line\n" {
		t.Fatalf("unexpected file content: %q", data)
	}
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		t.Fatalf("unexpected goroutine ID: %q", id)
	}
}
