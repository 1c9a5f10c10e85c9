// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"
)

// tailer follows a log file from its current end, delivering appended lines
// on the lines channel without their trailing newline. Rotation and
// truncation reopen the file from the start so no restart is needed across
// log rotation.
type tailer struct {
	path  string
	poll  time.Duration
	atEnd bool
	lines chan string
}

func newTailer(path string) *tailer {
	return &tailer{
		path:  path,
		poll:  time.Second,
		atEnd: true,
		lines: make(chan string, 64),
	}
}

func (t *tailer) run(ctx context.Context) error {
	defer close(t.lines)
	f, reader, err := t.open(t.atEnd)
	if err != nil {
		return err
	}
	defer func() { f.Close() }()
	pending := ""
	for {
		chunk, err := reader.ReadString('\n')
		if err == nil {
			line := strings.TrimSuffix(pending+chunk, "\n")
			line = strings.TrimSuffix(line, "\r")
			pending = ""
			select {
			case t.lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if err != io.EOF {
			return err
		}
		pending += chunk
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.poll):
		}
		if t.rotated(f, reader) {
			f.Close()
			// Drop the partial line, it belongs to the rotated-away file.
			pending = ""
			if f, reader, err = t.open(false); err != nil {
				return err
			}
		}
	}
}

func (t *tailer) open(atEnd bool) (*os.File, *bufio.Reader, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, nil, err
	}
	if atEnd {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, nil, err
		}
	}
	return f, bufio.NewReader(f), nil
}

func (t *tailer) rotated(f *os.File, reader *bufio.Reader) bool {
	pathStat, err := os.Stat(t.path)
	if err != nil {
		// Mid-rotation; treat as rotated once the new file appears.
		return false
	}
	fileStat, err := f.Stat()
	if err != nil {
		return true
	}
	if !os.SameFile(pathStat, fileStat) {
		return true
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return true
	}
	return pathStat.Size() < pos-int64(reader.Buffered())
}
