// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"regexp"
	"strconv"
)

var (
	btrfsExtentCorruptionRe = regexp.MustCompile(`BTRFS warning \(device .*\): csum failed root`)
	btrfsTreeCorruptionRe   = regexp.MustCompile(`BTRFS critical \(device .*\): corrupt (leaf|node)`)
	guestOomKillRe          = regexp.MustCompile(`Out of memory: Killed process (\d+) \((.*)\)`)
)

// GuestFileCorruption announces filesystem corruption inside a guest VM.
// Corruption may predate its detection by an arbitrary amount of time, so it
// maps to an out-of-band signal rather than a crash report.
type GuestFileCorruption struct {
	CID int32 // vsock context ID of the guest
}

// GuestOomEvent announces an OOM kill inside a guest VM. Crash reporting for
// these is withheld pending a privacy review of the process names involved.
type GuestOomEvent struct {
	CID     int32
	Pid     int64
	Process string
}

// TerminaEventSender delivers guest anomaly events to the external anomaly
// event bus. Sends are fire and forget; implementations must be safe for
// concurrent use if one connection is shared between parser instances.
type TerminaEventSender interface {
	SendFileCorruption(ev GuestFileCorruption)
	SendOomEvent(ev GuestOomEvent)
}

// TerminaParser watches a guest VM console log. It never produces a crash
// report: matches are emitted as signals on the anomaly event bus instead.
type TerminaParser struct {
	base
	sender TerminaEventSender
	cid    int32
}

func NewTerminaParser(sender TerminaEventSender, cid int32) *TerminaParser {
	return &TerminaParser{sender: sender, cid: cid}
}

func (p *TerminaParser) ParseLine(line string) *CrashReport {
	if btrfsExtentCorruptionRe.MatchString(line) || btrfsTreeCorruptionRe.MatchString(line) {
		p.sender.SendFileCorruption(GuestFileCorruption{CID: p.cid})
		return nil
	}
	if m := guestOomKillRe.FindStringSubmatch(line); m != nil {
		pid, _ := strconv.ParseInt(m[1], 10, 64)
		p.sender.SendOomEvent(GuestOomEvent{CID: p.cid, Pid: pid, Process: m[2]})
	}
	return nil
}
