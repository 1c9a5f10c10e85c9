// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/hash"
)

const (
	suspendStartMarker = "Error writing to /sys/power/state: "
	suspendEndMarker   = "--- end /sys/kernel/debug/suspend_stats ---"
)

var (
	suspendDevRe   = regexp.MustCompile(`last_failed_dev: (.+)`)
	suspendErrnoRe = regexp.MustCompile(`last_failed_errno: (.+)`)
	suspendStepRe  = regexp.MustCompile(`last_failed_step: (.+)`)
)

type suspendPhase int

const (
	suspendNone suspendPhase = iota
	suspendBody
)

// SuspendParser detects failed suspend attempts from the suspend diagnostics
// log: a write error to /sys/power/state followed by a suspend_stats block
// naming the failing device, errno and step.
type SuspendParser struct {
	base
	sampler *Sampler
	weights WeightSource

	phase suspendPhase
	dev   string
	errno string
	step  string
}

func NewSuspendParser(sampler *Sampler, weights WeightSource) *SuspendParser {
	return &SuspendParser{sampler: sampler, weights: weights}
}

func (p *SuspendParser) ParseLine(line string) *CrashReport {
	// The sampling draw happens up front on every call, unrelated lines
	// included, and a rejected call skips state tracking entirely. Existing
	// crash volumes are calibrated to this draw placement.
	if !p.sampler.Accept(p.weights.SuspendFailureWeight()) {
		return nil
	}
	if p.phase == suspendNone {
		if strings.HasPrefix(line, suspendStartMarker) {
			p.phase = suspendBody
			p.dev = "none"
			p.errno = "unknown"
			p.step = "unknown"
		}
		return nil
	}
	if !strings.HasPrefix(line, suspendEndMarker) {
		if m := suspendDevRe.FindStringSubmatch(line); m != nil {
			p.dev = m[1]
		}
		if m := suspendErrnoRe.FindStringSubmatch(line); m != nil {
			p.errno = m[1]
		}
		if m := suspendStepRe.FindStringSubmatch(line); m != nil {
			p.step = m[1]
		}
		return nil
	}
	p.phase = suspendNone
	h := hash.Sum32(p.dev + p.errno + p.step)
	return &CrashReport{
		Text: fmt.Sprintf("%v-suspend failure: device: %v step: %v errno: %v\n",
			h, p.dev, p.step, p.errno),
		Flags: []string{"--suspend_failure"},
	}
}
