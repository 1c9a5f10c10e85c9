// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package anomaly

import (
	"regexp"
	"strings"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/hash"
)

var (
	selinuxGrantedRe  = regexp.MustCompile(`avc:\s*granted`)
	selinuxCommRe     = regexp.MustCompile(`comm="([^"]*)"`)
	selinuxNameRe     = regexp.MustCompile(`name="([^"]*)"`)
	selinuxScontextRe = regexp.MustCompile(`scontext=(\S*)`)
	selinuxTcontextRe = regexp.MustCompile(`tcontext=(\S*)`)
	selinuxPermRe     = regexp.MustCompile(`\{ ([^}]*) \}`)
)

// SELinuxParser detects AVC denial/grant lines from the audit log and turns
// them into selinux_violation reports. The report text layout and the
// signature string are parsed by the crash server; their format is frozen.
type SELinuxParser struct {
	base
	sampler *Sampler
	weights WeightSource
}

func NewSELinuxParser(sampler *Sampler, weights WeightSource) *SELinuxParser {
	return &SELinuxParser{sampler: sampler, weights: weights}
}

func (p *SELinuxParser) ParseLine(line string) *CrashReport {
	// Permissive-mode denials are non-enforcing and far too frequent.
	if strings.Contains(line, "permissive=1") {
		return nil
	}
	if !p.sampler.Accept(p.weights.SELinuxWeight()) {
		return nil
	}
	onlyAlpha := stripNonAlpha(line)
	h := hash.Sum32(onlyAlpha)
	if p.wasAlreadySeen(h) {
		return nil
	}
	// The "granted-" prefix keeps its trailing hyphen while denials get no
	// prefix at all; the server-side signature format depends on exactly
	// this asymmetry.
	signature := ""
	if selinuxGrantedRe.MatchString(line) {
		signature = "granted-"
	}
	comm := matchOrEmpty(selinuxCommRe, line)
	name := matchOrEmpty(selinuxNameRe, line)
	scontext := matchOrEmpty(selinuxScontextRe, line)
	tcontext := matchOrEmpty(selinuxTcontextRe, line)
	permission := matchOrEmpty(selinuxPermRe, line)
	// ARC++ violations are frequent and not actionable on the ChromeOS
	// side; keep only violations involving a ChromeOS context.
	if !isCrosContext(scontext) && !isCrosContext(tcontext) && !isCrosContext(comm) {
		return nil
	}
	signature += strings.Join([]string{
		scontext, tcontext, permission,
		stripNonAlpha(comm), stripNonAlpha(name),
	}, "-")

	text := new(strings.Builder)
	text.WriteString(h.String() + "-selinux-" + signature + "\n")
	for _, field := range []struct{ key, value string }{
		{"comm", comm},
		{"name", name},
		{"scontext", scontext},
		{"tcontext", tcontext},
	} {
		if field.value != "" {
			text.WriteString(field.key + "\x01" + field.value + "\x02")
		}
	}
	text.WriteString("\n" + line)
	return &CrashReport{
		Text:  text.String(),
		Flags: []string{"--selinux_violation"},
	}
}

func isCrosContext(s string) bool {
	return strings.Contains(s, "cros") || strings.Contains(s, "minijail")
}

func matchOrEmpty(re *regexp.Regexp, line string) string {
	if m := re.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// stripNonAlpha removes every byte outside a-zA-Z. Context strings and file
// names may contain arbitrary bytes; the hashed and signature forms keep
// only the stable alphabetic core.
func stripNonAlpha(s string) string {
	b := new(strings.Builder)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
