// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/anomaly"
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/config"
)

type nopSender struct{}

func (nopSender) SendFileCorruption(anomaly.GuestFileCorruption) {}
func (nopSender) SendOomEvent(anomaly.GuestOomEvent)             {}

func TestKernelWarningWeightMapping(t *testing.T) {
	w := defaultWeights()
	tests := []struct {
		flag   string
		weight int
	}{
		{"--kernel_warning", w.KernelWarning},
		{"--kernel_wifi_warning", w.KernelWifiWarning},
		{"--kernel_suspend_warning", w.KernelSuspendWarning},
		{"--kernel_ath10k_error", w.KernelAth10kError},
		{"--kernel_iwlwifi_error", w.KernelIwlwifiError},
		// Unknown flags fall back to the generic kernel warning weight.
		{"--something_else", w.KernelWarning},
	}
	for _, test := range tests {
		assert.Equal(t, test.weight, w.KernelWarningWeight(test.flag), "flag %v", test.flag)
	}
}

func TestConfigOverridesWeights(t *testing.T) {
	cfg := defaultConfig()
	data := []byte(`
# test image config
{
	"always_send": true,
	"weights": {"kernel_warning": 3}
}`)
	require.NoError(t, config.LoadData(data, cfg))
	assert.True(t, cfg.AlwaysSend)
	assert.Equal(t, 3, cfg.Weights.KernelWarningWeight("--kernel_warning"))
	// Untouched weights keep their defaults.
	assert.Equal(t, defaultWeights().ServiceFailure, cfg.Weights.ServiceFailureWeight())
}

func TestMakeParser(t *testing.T) {
	cfg := defaultConfig()
	for _, typ := range []string{"service", "selinux", "kernel", "suspend", "cryptohome", "tcsd", "termina"} {
		p, err := makeParser(cfg, Source{Path: "/var/log/test", Parser: typ, CID: 7}, nopSender{})
		require.NoError(t, err, "parser %v", typ)
		require.NotNil(t, p, "parser %v", typ)
	}
	_, err := makeParser(cfg, Source{Path: "/var/log/test", Parser: "bogus"}, nil)
	assert.Error(t, err)
}
