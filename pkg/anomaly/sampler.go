// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"math/rand"
)

// WeightSource supplies the per-anomaly-class sampling weights. A weight N
// means "accept roughly 1 in N matching, non-duplicate anomalies", bounding
// server-side volume. Implementations must be safe for concurrent reads as
// one WeightSource is typically shared by all parser instances.
type WeightSource interface {
	ServiceFailureWeight() int
	SELinuxWeight() int
	// KernelWarningWeight returns the weight for the given kernel flag
	// (--kernel_warning, --kernel_wifi_warning, --kernel_suspend_warning,
	// --kernel_ath10k_error, --kernel_iwlwifi_error).
	KernelWarningWeight(flag string) int
	SuspendFailureWeight() int
}

// Sampler is an accept-with-probability-1/N gate. The randomness source is
// injected so parsers stay deterministic under test; alwaysAccept deployments
// (integration tests, always-send images) bypass the RNG entirely.
type Sampler struct {
	rnd          *rand.Rand
	alwaysAccept bool
}

// NewSampler creates a sampler drawing from src. Samplers are not safe for
// concurrent use; give each parser instance its own.
func NewSampler(src rand.Source, alwaysAccept bool) *Sampler {
	return &Sampler{
		rnd:          rand.New(src),
		alwaysAccept: alwaysAccept,
	}
}

// Accept reports whether this anomaly won the 1/weight draw.
func (s *Sampler) Accept(weight int) bool {
	if s.alwaysAccept {
		return true
	}
	if weight <= 1 {
		return true
	}
	return s.rnd.Intn(weight) == 0
}
