// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"regexp"
	"strconv"
)

var cryptohomeMountFailureRe = regexp.MustCompile(`Failed to mount cryptohome, error = (\d+)`)

// Mount errors that happen in normal operation and are not worth a report.
const (
	mountErrorKeyFailure       = 2       // wrong password / stale keyset
	mountErrorUserDoesNotExist = 1048576 // first sign-in of a new user
)

// CryptohomeParser detects cryptohome mount failures. One-shot: no
// accumulation state, no sampling.
type CryptohomeParser struct {
	base
}

func NewCryptohomeParser() *CryptohomeParser {
	return &CryptohomeParser{}
}

func (p *CryptohomeParser) ParseLine(line string) *CrashReport {
	m := cryptohomeMountFailureRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	code, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil
	}
	if code == mountErrorKeyFailure || code == mountErrorUserDoesNotExist {
		return nil
	}
	return &CrashReport{
		Flags: []string{"--mount_failure", "--mount_device=cryptohome"},
	}
}
