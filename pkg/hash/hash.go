// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package hash provides the 32-bit string hash used in crash signatures.
package hash

import "fmt"

// Sig32 is a 32-bit anomaly signature hash.
type Sig32 uint32

// Sum32 computes the hash of s with the recurrence h = h*33 + byte,
// accumulated left-to-right from seed 0. Computed values are embedded in
// crash signatures consumed by the crash server, so the recurrence is frozen:
// changing it would split every existing signature. Sum32("") == 0.
func Sum32(s string) Sig32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h<<5 + h + uint32(s[i])
	}
	return Sig32(h)
}

// String formats the hash as 8 lowercase hex digits, the form used as the
// leading component of report texts.
func (sig Sig32) String() string {
	return fmt.Sprintf("%08x", uint32(sig))
}
