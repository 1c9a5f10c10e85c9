// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package log provides functionality similar to the standard log package
// with verbosity levels and a settable process name prefix shared by all
// packages of the daemon.
package log

import (
	"flag"
	golog "log"
	"sync/atomic"
)

var (
	flagV = flag.Int("vv", 0, "verbosity")
	name  atomic.Value // string
)

// SetName sets the prefix prepended to every log line, normally the binary
// name.
func SetName(n string) {
	name.Store(n)
}

func prefix() string {
	n, _ := name.Load().(string)
	if n == "" {
		return ""
	}
	return n + ": "
}

// Logf writes the message if v does not exceed the current verbosity level.
// Level 0 is always written.
func Logf(v int, msg string, args ...interface{}) {
	if v > *flagV {
		return
	}
	golog.Printf(prefix()+msg, args...)
}

// Errorf writes the message unconditionally.
func Errorf(msg string, args ...interface{}) {
	golog.Printf(prefix()+"error: "+msg, args...)
}

func Fatal(err error) {
	golog.Fatalf("%v%v", prefix(), err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(prefix()+msg, args...)
}

// VerboseWriter is an io.Writer that logs at the given verbosity level.
type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}
