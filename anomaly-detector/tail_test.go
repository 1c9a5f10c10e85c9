// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startTailer(t *testing.T, path string) *tailer {
	tl := newTailer(path)
	tl.atEnd = false
	tl.poll = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tl.run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return tl
}

func expectLine(t *testing.T, tl *tailer, want string) {
	t.Helper()
	select {
	case got := <-tl.lines:
		if got != want {
			t.Fatalf("got line %q, want %q", got, want)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for line %q", want)
	}
}

func TestTailerDeliversLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages")
	if err := os.WriteFile(path, []byte("first\nsecond\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tl := startTailer(t, path)
	expectLine(t, tl, "first")
	expectLine(t, tl, "second")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("third\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()
	expectLine(t, tl, "third")
}

func TestTailerSurvivesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages")
	if err := os.WriteFile(path, []byte("old line one\nold line two\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tl := startTailer(t, path)
	expectLine(t, tl, "old line one")
	expectLine(t, tl, "old line two")

	// Log rotation truncates in place; the tailer must reopen from the
	// start of the new contents.
	if err := os.WriteFile(path, []byte("fresh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	expectLine(t, tl, "fresh")
}

func TestTailerMissingFile(t *testing.T) {
	tl := newTailer(filepath.Join(t.TempDir(), "nope"))
	if err := tl.run(context.Background()); err == nil {
		t.Fatalf("run on a missing file succeeded")
	}
}
