// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/anomaly"
)

func TestCollectorSpool(t *testing.T) {
	dir := t.TempDir()
	c, err := newCollector(&Config{SpoolDir: dir})
	require.NoError(t, err)
	rep := &anomaly.CrashReport{
		Text:  "deadbeef-exit2-foo-service\n",
		Flags: []string{"--service_failure=foo-service"},
	}
	c.collect("/var/log/messages", rep)

	logs, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	text, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Equal(t, rep.Text, string(text))

	flags, err := os.ReadFile(strings.TrimSuffix(logs[0], ".log") + ".flags")
	require.NoError(t, err)
	assert.Equal(t, "--service_failure=foo-service\n", string(flags))
}

func TestCollectorRequiresDestination(t *testing.T) {
	_, err := newCollector(&Config{})
	assert.Error(t, err)
}
