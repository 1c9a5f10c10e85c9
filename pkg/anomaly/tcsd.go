// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"fmt"
	"regexp"
	"strconv"
)

var tcsdAuthFailureRe = regexp.MustCompile(`Found auth failure in the last life cycle\. \(0x([0-9a-fA-F]+)\)`)

// Auth failure codes that users trigger in normal operation.
var tcsdIgnoredAuthFailures = map[uint32]bool{
	// TPM_E_DEFEND_LOCK_RUNNING: the TPM dictionary-attack defense, raised
	// after ordinary repeated wrong-password attempts.
	0x803: true,
}

// TcsdParser detects TPM auth failures reported by tcsd on startup.
type TcsdParser struct {
	base
}

func NewTcsdParser() *TcsdParser {
	return &TcsdParser{}
}

func (p *TcsdParser) ParseLine(line string) *CrashReport {
	m := tcsdAuthFailureRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	code, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return nil
	}
	if tcsdIgnoredAuthFailures[uint32(code)] {
		return nil
	}
	return &CrashReport{
		Text:  fmt.Sprintf("%08x-auth failure\n", uint32(code)),
		Flags: []string{"--auth_failure"},
	}
}
