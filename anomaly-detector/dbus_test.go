// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/anomaly"
)

func TestDBusSenderWithoutBus(t *testing.T) {
	// No bus connection: events are counted and dropped, never panic.
	s := &dbusEventSender{}
	oomBefore := testutil.ToFloat64(statSignals.WithLabelValues("GuestOomEvent"))
	corruptionBefore := testutil.ToFloat64(statSignals.WithLabelValues("GuestFileCorruption"))

	s.SendOomEvent(anomaly.GuestOomEvent{CID: 3, Pid: 100, Process: "stress"})
	s.SendFileCorruption(anomaly.GuestFileCorruption{CID: 3})

	assert.Equal(t, oomBefore+1,
		testutil.ToFloat64(statSignals.WithLabelValues("GuestOomEvent")))
	assert.Equal(t, corruptionBefore+1,
		testutil.ToFloat64(statSignals.WithLabelValues("GuestFileCorruption")))
}
