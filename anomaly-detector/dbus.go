// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"github.com/godbus/dbus/v5"

	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/anomaly"
	"github.com/ArthurSonzogni/chromiumos-platform2-sub051/pkg/log"
)

const (
	anomalyEventPath      = "/org/chromium/AnomalyEventService"
	anomalyEventInterface = "org.chromium.AnomalyEventServiceInterface"
)

// dbusEventSender broadcasts guest anomaly events as D-Bus signals on the
// system bus. The connection is established lazily and resilient to the bus
// being unavailable: events are then logged and dropped, never queued.
type dbusEventSender struct {
	conn *dbus.Conn
}

func newDBusEventSender() *dbusEventSender {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Errorf("system bus unavailable, guest signals will be dropped: %v", err)
		conn = nil
	}
	return &dbusEventSender{conn: conn}
}

func (s *dbusEventSender) SendFileCorruption(ev anomaly.GuestFileCorruption) {
	s.emit("GuestFileCorruption", ev.CID)
}

func (s *dbusEventSender) SendOomEvent(ev anomaly.GuestOomEvent) {
	s.emit("GuestOomEvent", ev.CID, ev.Pid, ev.Process)
}

func (s *dbusEventSender) emit(signal string, values ...interface{}) {
	statSignals.WithLabelValues(signal).Inc()
	if s.conn == nil {
		log.Logf(0, "dropping %v signal: no bus connection", signal)
		return
	}
	if err := s.conn.Emit(anomalyEventPath, anomalyEventInterface+"."+signal, values...); err != nil {
		log.Errorf("failed to emit %v: %v", signal, err)
	}
}
