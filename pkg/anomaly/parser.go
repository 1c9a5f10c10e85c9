// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package anomaly classifies lines from system logs (kernel ring buffer,
// audit log, service manager log, suspend diagnostics, guest VM console)
// into normalized, deduplicated crash reports.
//
// The driver owns one Parser instance per monitored log source and calls
// ParseLine once per line, in order. A Parser never fails on malformed
// input: a line that does not complete a detectable anomaly simply yields
// no report.
package anomaly

import (
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/hash"
)

// CrashReport is the output of a parser: Text becomes the crash log body
// (and seeds the server-side signature), Flags become literal crash_reporter
// arguments. A report is immutable once produced and compared by value.
type CrashReport struct {
	Text  string
	Flags []string
}

// Parser consumes one log line at a time and occasionally produces a report.
// A nil result is the common case and means "nothing anomalous here", not
// failure. Implementations keep all state in the instance; concurrent calls
// on the same instance are not allowed, distinct instances are independent.
type Parser interface {
	ParseLine(line string) *CrashReport

	// PeriodicUpdate lets a parser flush time-bounded partial state without
	// a triggering line. It is invoked by an external scheduler and must not
	// block. The default implementation does nothing.
	PeriodicUpdate() *CrashReport
}

// seenSetBits is sized for a handful of distinct anomalies per boot session,
// so collisions (a new anomaly treated as already seen) are rare and accepted.
const seenSetBits = 32 << 10

// SeenSet is a fixed-size bitmap recording which anomaly hashes were already
// reported this session. It is owned by exactly one parser instance and is
// never cleared or resized; resizing would change which hashes collide and
// therefore which anomalies get deduplicated.
type SeenSet struct {
	bits [seenSetBits / 64]uint64
}

// Observe returns whether hash was seen before and marks it as seen.
func (s *SeenSet) Observe(h hash.Sig32) bool {
	idx := uint32(h) % seenSetBits
	mask := uint64(1) << (idx % 64)
	prev := s.bits[idx/64]&mask != 0
	s.bits[idx/64] |= mask
	return prev
}

// base carries the state and defaults shared by all concrete parsers.
type base struct {
	seen SeenSet
}

func (b *base) wasAlreadySeen(h hash.Sig32) bool {
	return b.seen.Observe(h)
}

func (b *base) PeriodicUpdate() *CrashReport {
	return nil
}
