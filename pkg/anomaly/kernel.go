// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/hash"
)

const (
	kernelCutHere  = "------------[ cut here"
	kernelEndTrace = "---[ end trace"

	smmuFaultMarker = "Unhandled context fault: fsr=0x"

	// crash_reporter disables its own core collection via RLIMIT_CORE; the
	// kernel logs this marker when it crashes. Reporting is rate limited to
	// break out of a crash_reporter-crashes-while-reporting loop.
	crashReporterCrashMarker   = "(crash_reporter) has RLIMIT_CORE set to"
	crashReporterCrashInterval = time.Hour
)

var (
	kernelWarningRe = regexp.MustCompile(`^\[\s*\S+\] WARNING:(?: CPU: \d+ PID: \d+)? at (.+)$`)

	ath10kStartRe = regexp.MustCompile(`ath10k_.*firmware crashed!`)
	ath10kEndRe   = regexp.MustCompile(`ath10k_.*htt-ver`)
	ath10kTagRe   = regexp.MustCompile(`ath10k_`)

	iwlwifiStartRe     = regexp.MustCompile(`iwlwifi.*Loaded firmware version:`)
	iwlwifiLmacEndRe   = regexp.MustCompile(`(.+)flow_handler`)
	iwlwifiUmacEndRe   = regexp.MustCompile(`(.+)isr status reg`)
	iwlwifiUmacStartRe = regexp.MustCompile(`Start IWL Error Log Dump(.+)`)
)

type warnPhase int

const (
	warnNone warnPhase = iota
	warnStart
	warnHeader
	warnBody
)

type iwlwifiPhase int

const (
	iwlwifiNone iwlwifiPhase = iota
	iwlwifiLmac
	iwlwifiUmac
)

// KernelParser reconstructs multi-line kernel and wireless-firmware dumps
// from the kernel ring buffer. Five detectors run concurrently over the same
// line stream, each with its own phase and buffer:
//
//  1. warning/panic dumps (cut here ... end trace)
//  2. ath10k firmware crash dumps
//  3. iwlwifi firmware error dumps (lmac section, optional nested umac)
//  4. SMMU context faults (single line)
//  5. crash_reporter self-crash markers (rate limited)
//
// They are checked in that fixed order and the first completed report wins
// for the line; the others still advance their own state.
type KernelParser struct {
	base
	sampler *Sampler
	weights WeightSource

	warnPhase warnPhase
	warnFlag  string
	warnText  string

	ath10kCollecting bool
	ath10kText       string

	iwlwifiPhase      iwlwifiPhase
	iwlwifiCollecting bool
	iwlwifiText       string

	lastReporterCrash time.Time
	now               func() time.Time
}

func NewKernelParser(sampler *Sampler, weights WeightSource) *KernelParser {
	return &KernelParser{
		sampler: sampler,
		weights: weights,
		now:     time.Now,
	}
}

func (p *KernelParser) ParseLine(line string) *CrashReport {
	if rep := p.parseWarning(line); rep != nil {
		return rep
	}
	if rep := p.parseAth10k(line); rep != nil {
		return rep
	}
	if rep := p.parseIwlwifi(line); rep != nil {
		return rep
	}
	if strings.Contains(line, smmuFaultMarker) {
		return &CrashReport{
			Text:  line + "\n",
			Flags: []string{"--kernel_smmu_fault"},
		}
	}
	if strings.Contains(line, crashReporterCrashMarker) {
		return p.reporterCrashed()
	}
	return nil
}

func (p *KernelParser) parseWarning(line string) *CrashReport {
	var rep *CrashReport
	switch p.warnPhase {
	case warnStart, warnHeader:
		if m := kernelWarningRe.FindStringSubmatch(line); m != nil {
			info := m[1]
			h := hash.Sum32(info)
			if p.wasAlreadySeen(h) {
				// The whole dump is a duplicate, discard the body outright.
				p.resetWarning()
				break
			}
			p.warnFlag = warningFlag(info)
			function := "unknown-function"
			if fields := strings.Fields(info); len(fields) >= 2 {
				function = fields[1]
			}
			p.warnText += fmt.Sprintf("%v-%v\n%v\n", h, function, info)
			p.warnPhase = warnBody
		} else if p.warnPhase == warnStart {
			// A single header line may separate the cut-here marker from
			// the WARNING line.
			p.warnText += line + "\n"
			p.warnPhase = warnHeader
		} else {
			p.resetWarning()
		}
	case warnBody:
		if strings.Contains(line, kernelEndTrace) {
			text := p.warnText
			flag := p.warnFlag
			p.resetWarning()
			rep = p.sampledDump(text, flag)
		} else {
			p.warnText += line + "\n"
		}
	}
	if strings.Contains(line, kernelCutHere) {
		p.resetWarning()
		p.warnPhase = warnStart
	}
	return rep
}

func warningFlag(info string) string {
	switch {
	case strings.Contains(info, "net/wireless"), strings.Contains(info, "net/mac80211"):
		return "--kernel_wifi_warning"
	case strings.Contains(info, "drivers/idle"):
		return "--kernel_suspend_warning"
	}
	return "--kernel_warning"
}

func (p *KernelParser) resetWarning() {
	p.warnPhase = warnNone
	p.warnFlag = ""
	p.warnText = ""
}

func (p *KernelParser) parseAth10k(line string) *CrashReport {
	if !p.ath10kCollecting {
		if ath10kStartRe.MatchString(line) {
			p.ath10kCollecting = true
			p.ath10kText = line + "\n"
		}
		return nil
	}
	// The dump ends at the htt-ver register line, or at the first line that
	// does not carry the ath10k_ tag at all.
	end := ath10kEndRe.MatchString(line)
	if !end && ath10kTagRe.MatchString(line) {
		p.ath10kText += line + "\n"
		return nil
	}
	if end {
		p.ath10kText += line + "\n"
	}
	text := p.ath10kText
	p.ath10kCollecting = false
	p.ath10kText = ""
	return p.sampledDump(text, "--kernel_ath10k_error")
}

func (p *KernelParser) parseIwlwifi(line string) *CrashReport {
	if !p.iwlwifiCollecting {
		if iwlwifiStartRe.MatchString(line) {
			p.iwlwifiCollecting = true
			p.iwlwifiPhase = iwlwifiLmac
			p.iwlwifiText = line + "\n"
		}
		return nil
	}
	switch p.iwlwifiPhase {
	case iwlwifiLmac:
		if iwlwifiLmacEndRe.MatchString(line) {
			p.iwlwifiText += line + "\n"
			p.iwlwifiPhase = iwlwifiUmac
			return nil
		}
		if iwlwifiUmacEndRe.MatchString(line) {
			p.iwlwifiText += line + "\n"
			return p.finishIwlwifi()
		}
		p.iwlwifiText += line + "\n"
	case iwlwifiUmac:
		// After the lmac section either a nested umac dump starts, or the
		// dump is over. In the latter case the current line is not part of
		// the dump and is not consumed into it.
		if iwlwifiUmacStartRe.MatchString(line) {
			p.iwlwifiText += line + "\n"
			p.iwlwifiPhase = iwlwifiLmac
			return nil
		}
		return p.finishIwlwifi()
	}
	return nil
}

func (p *KernelParser) finishIwlwifi() *CrashReport {
	text := p.iwlwifiText
	p.iwlwifiCollecting = false
	p.iwlwifiPhase = iwlwifiNone
	p.iwlwifiText = ""
	return p.sampledDump(text, "--kernel_iwlwifi_error")
}

// sampledDump applies the per-flag sampling weight to a completed dump.
// The dump state is already reset by the caller, so a rejected dump is
// dropped for good.
func (p *KernelParser) sampledDump(text, flag string) *CrashReport {
	weight := p.weights.KernelWarningWeight(flag)
	if !p.sampler.Accept(weight) {
		return nil
	}
	return &CrashReport{
		Text:  text,
		Flags: []string{flag, fmt.Sprintf("--weight=%v", weight)},
	}
}

func (p *KernelParser) reporterCrashed() *CrashReport {
	now := p.now()
	if !p.lastReporterCrash.IsZero() && now.Sub(p.lastReporterCrash) <= crashReporterCrashInterval {
		return nil
	}
	p.lastReporterCrash = now
	return &CrashReport{Flags: []string{"--crash_reporter_crashed"}}
}
