// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

// Weights holds the per-anomaly-class sampling weights (report roughly 1 in
// N). Values come from the config file; the defaults match current crash
// server volume.
type Weights struct {
	ServiceFailure       int `json:"service_failure"`
	SELinuxViolation     int `json:"selinux_violation"`
	KernelWarning        int `json:"kernel_warning"`
	KernelWifiWarning    int `json:"kernel_wifi_warning"`
	KernelSuspendWarning int `json:"kernel_suspend_warning"`
	KernelAth10kError    int `json:"kernel_ath10k_error"`
	KernelIwlwifiError   int `json:"kernel_iwlwifi_error"`
	SuspendFailure       int `json:"suspend_failure"`
}

func defaultWeights() Weights {
	return Weights{
		ServiceFailure:       50,
		SELinuxViolation:     100,
		KernelWarning:        10,
		KernelWifiWarning:    50,
		KernelSuspendWarning: 10,
		KernelAth10kError:    50,
		KernelIwlwifiError:   50,
		SuspendFailure:       5,
	}
}

func (w *Weights) ServiceFailureWeight() int { return w.ServiceFailure }
func (w *Weights) SELinuxWeight() int        { return w.SELinuxViolation }
func (w *Weights) SuspendFailureWeight() int { return w.SuspendFailure }

func (w *Weights) KernelWarningWeight(flag string) int {
	switch flag {
	case "--kernel_wifi_warning":
		return w.KernelWifiWarning
	case "--kernel_suspend_warning":
		return w.KernelSuspendWarning
	case "--kernel_ath10k_error":
		return w.KernelAth10kError
	case "--kernel_iwlwifi_error":
		return w.KernelIwlwifiError
	}
	return w.KernelWarning
}
