// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selinuxDenialLine = `audit: type=1400 audit(1550558262.594:5434): avc:  denied  ` +
	`{ module_request } for  pid=26915 comm="init" kmod="fs-cgroup2" ` +
	`scontext=u:r:cros_init:s0 tcontext=u:object_r:kernel:s0 tclass=system permissive=0`

func TestSELinuxViolation(t *testing.T) {
	p := NewSELinuxParser(alwaysSampler(), fakeWeights{})
	rep := p.ParseLine(selinuxDenialLine)
	require.NotNil(t, rep)
	assert.Equal(t, []string{"--selinux_violation"}, rep.Flags)

	lines := strings.SplitN(rep.Text, "\n", 2)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0],
		"-selinux-u:r:cros_init:s0-u:object_r:kernel:s0-module_request-init-"),
		"signature line %q", lines[0])
	assert.Contains(t, rep.Text, "comm\x01init\x02")
	assert.Contains(t, rep.Text, "scontext\x01u:r:cros_init:s0\x02")
	assert.Contains(t, rep.Text, "tcontext\x01u:object_r:kernel:s0\x02")
	assert.NotContains(t, rep.Text, "name\x01", "empty fields must be omitted")
	assert.True(t, strings.HasSuffix(rep.Text, "\n"+selinuxDenialLine))
}

func TestSELinuxGranted(t *testing.T) {
	line := `audit: type=1400 audit(1550558262.594:5434): avc:  granted  ` +
		`{ read } for  pid=100 comm="minijail0" scontext=u:r:cros_foo:s0 tcontext=u:object_r:bar:s0`
	p := NewSELinuxParser(alwaysSampler(), fakeWeights{})
	rep := p.ParseLine(line)
	require.NotNil(t, rep)
	sig := strings.SplitN(rep.Text, "\n", 2)[0]
	// Grants carry the "granted-" prefix including the hyphen; denials get
	// no prefix at all. The server relies on exactly this form.
	assert.Contains(t, sig, "-selinux-granted-u:r:cros_foo:s0-")
}

func TestSELinuxPermissiveSuppressed(t *testing.T) {
	p := NewSELinuxParser(alwaysSampler(), fakeWeights{})
	for _, line := range []string{
		strings.Replace(selinuxDenialLine, "permissive=0", "permissive=1", 1),
		`avc:  denied  { read } for comm="cros_healthd" permissive=1`,
		"permissive=1",
	} {
		assert.Nil(t, p.ParseLine(line), "line %q", line)
	}
}

func TestSELinuxNonCrosSuppressed(t *testing.T) {
	line := `audit: type=1400 audit(123.456:1): avc:  denied  { read } for  pid=1 ` +
		`comm="app_process" scontext=u:r:untrusted_app:s0 tcontext=u:object_r:system_file:s0`
	p := NewSELinuxParser(alwaysSampler(), fakeWeights{})
	assert.Nil(t, p.ParseLine(line))
}

func TestSELinuxDedup(t *testing.T) {
	p := NewSELinuxParser(alwaysSampler(), fakeWeights{})
	require.NotNil(t, p.ParseLine(selinuxDenialLine))
	assert.Nil(t, p.ParseLine(selinuxDenialLine), "identical violation reported twice")
	// The hash covers only the alphabetic bytes, so a line differing in
	// pid/timestamp only is still a duplicate.
	changedDigits := strings.Replace(selinuxDenialLine, "pid=26915", "pid=11111", 1)
	assert.Nil(t, p.ParseLine(changedDigits), "violation differing only in digits reported twice")
}
