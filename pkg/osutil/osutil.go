// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package osutil contains the small set of file and subprocess helpers the
// daemon needs to hand reports off to crash_reporter.
package osutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultDirPerm  = 0755
	DefaultFilePerm = 0644
)

func WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, DefaultFilePerm)
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

// RunWithInput runs "bin args..." with input on stdin and the given timeout.
// Returns combined output; if the command fails, err includes the output.
func RunWithInput(timeout time.Duration, input []byte, bin string, args ...string) ([]byte, error) {
	output := new(bytes.Buffer)
	cmd := exec.Command(bin, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = output
	cmd.Stderr = output
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %v: %w", bin, err)
	}
	done := make(chan bool)
	timedout := make(chan bool, 1)
	timer := time.NewTimer(timeout)
	go func() {
		select {
		case <-timer.C:
			timedout <- true
			cmd.Process.Kill()
		case <-done:
			timedout <- false
			timer.Stop()
		}
	}()
	err := cmd.Wait()
	close(done)
	if err != nil {
		text := fmt.Sprintf("failed to run %v %v: %v", bin, strings.Join(args, " "), err)
		if <-timedout {
			text = fmt.Sprintf("timedout after %v: %v %v", timeout, bin, strings.Join(args, " "))
		}
		return nil, fmt.Errorf("%v\n%s", text, output.Bytes())
	}
	return output.Bytes(), nil
}
