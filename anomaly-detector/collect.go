// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/anomaly"
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/log"
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/osutil"
)

var (
	statLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomaly_detector_lines_total",
		Help: "Log lines consumed, per source.",
	}, []string{"source"})
	statReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomaly_detector_reports_total",
		Help: "Crash reports produced, per source.",
	}, []string{"source"})
	statSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomaly_detector_guest_signals_total",
		Help: "Guest anomaly signals emitted, per signal name.",
	}, []string{"signal"})
)

const reporterTimeout = time.Minute

// collector hands finished reports to crash_reporter, invoked with the
// report flags as arguments and the text on stdin. Without a configured
// binary (development setups) reports are spooled as .log/.flags file pairs.
type collector struct {
	reporterBin string
	spoolDir    string
}

func newCollector(cfg *Config) (*collector, error) {
	c := &collector{
		reporterBin: cfg.CrashReporter,
		spoolDir:    cfg.SpoolDir,
	}
	if c.reporterBin == "" {
		if c.spoolDir == "" {
			return nil, fmt.Errorf("neither crash_reporter nor spool_dir configured")
		}
		if err := osutil.MkdirAll(c.spoolDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// collect is fire and forget: a failed handoff is logged and dropped, the
// parsing contract has no delivery guarantee.
func (c *collector) collect(source string, rep *anomaly.CrashReport) {
	statReports.WithLabelValues(source).Inc()
	log.Logf(1, "report from %v: %v", source, rep.Flags)
	if c.reporterBin != "" {
		_, err := osutil.RunWithInput(reporterTimeout, []byte(rep.Text), c.reporterBin, rep.Flags...)
		if err != nil {
			log.Errorf("crash_reporter failed: %v", err)
		}
		return
	}
	base := filepath.Join(c.spoolDir, fmt.Sprintf("%v.%v", filepath.Base(source), time.Now().UnixNano()))
	if err := osutil.WriteFile(base+".log", []byte(rep.Text)); err != nil {
		log.Errorf("failed to spool report: %v", err)
		return
	}
	flags := strings.Join(rep.Flags, "\n") + "\n"
	if err := osutil.WriteFile(base+".flags", []byte(flags)); err != nil {
		log.Errorf("failed to spool report flags: %v", err)
	}
}
