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

var serviceFailureRe = regexp.MustCompile(`(\S+) \S+ process \((\d+)\) terminated with status (\d+)`)

// ServiceParser detects service-manager reports of processes that exited
// with a non-zero status. Failures are deduplicated on the service name
// alone, so repeated failures of the same service with different exit codes
// collapse into one report per session.
type ServiceParser struct {
	base
	sampler *Sampler
	weights WeightSource
}

func NewServiceParser(sampler *Sampler, weights WeightSource) *ServiceParser {
	return &ServiceParser{sampler: sampler, weights: weights}
}

func (p *ServiceParser) ParseLine(line string) *CrashReport {
	m := serviceFailureRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	name, status := m[1], m[3]
	// cros-camera uses non-zero exit statuses to signal transient failures
	// that are handled by a respawn; reports for it are pure noise.
	if name == "cros-camera" {
		return nil
	}
	if !p.sampler.Accept(p.weights.ServiceFailureWeight()) {
		return nil
	}
	h := hash.Sum32(name)
	if p.wasAlreadySeen(h) {
		return nil
	}
	flag := "--service_failure=" + name
	if strings.HasPrefix(name, "arc-") {
		flag = "--arc_service_failure=" + name
	}
	return &CrashReport{
		Text:  fmt.Sprintf("%v-exit%v-%v\n", h, status, name),
		Flags: []string{flag},
	}
}
