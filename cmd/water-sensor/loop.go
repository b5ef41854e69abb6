package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/adc"
	"github.com/sweeney/water-sensor/internal/clock"
	"github.com/sweeney/water-sensor/internal/indicator"
	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/mqtt"
	"github.com/sweeney/water-sensor/internal/network"
	"github.com/sweeney/water-sensor/internal/report"
	"github.com/sweeney/water-sensor/internal/status"
)

// readiness is the part of store.Store the loop consults before reporting.
type readiness interface {
	Ready() bool
}

// broadcaster pushes status snapshots to live clients.
type broadcaster interface {
	BroadcastStatus(snap status.Snapshot) bool
}

// loop holds the collaborators of the poll loop. publisher, mqttStatus,
// live, resync and hostInfo may be nil.
type loop struct {
	sensor     adc.Reader
	driver     *indicator.Driver
	network    network.Connectivity
	store      readiness
	clock      clock.Source
	resync     func(context.Context) error
	reporter   *report.Reporter
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	live       broadcaster
	hostInfo   func() (*status.HostInfo, error)

	thresholds logic.Thresholds
	confirm    int
	heartbeat  time.Duration
	log        *zap.Logger
}

// run polls on every tick until a signal arrives.
func (l *loop) run(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(l.thresholds, l.confirm, startTime)

	for {
		select {
		case s := <-sig:
			l.shutdown(s, now())
			return nil

		case <-tick:
			t := now()
			raw, err := l.sensor.Read()
			if err != nil {
				l.log.Warn("adc read error", zap.Error(err))
				continue
			}

			tr := detector.Process(logic.Input{Raw: raw, Time: t})
			l.log.Debug("sample", zap.Int("raw", raw), zap.Stringer("level", tr.Level))

			l.driver.Apply(tr.Level)

			if tr.Changed {
				l.log.Info("level change",
					zap.Stringer("from", tr.From),
					zap.Stringer("to", tr.Level),
					zap.Int("raw", raw),
				)
				l.report(tr, t)
				l.publish(tr)
			}

			if hb := detector.CheckHeartbeat(t, l.heartbeat); hb != nil {
				l.beat(hb, detector)
			}

			l.refresh(detector, raw, t)
		}
	}
}

// report persists a change if the device is online and the store is ready.
// A change seen while offline is not reported later.
func (l *loop) report(tr logic.Transition, t time.Time) {
	online := l.network.IsConnected()
	ready := l.store.Ready()
	if !online || !ready {
		l.log.Warn("report skipped, not connected",
			zap.Bool("network", online),
			zap.Bool("store", ready),
			zap.Stringer("level", tr.Level),
		)
		return
	}

	l.ensureSynced()
	reading := logic.Reading{
		Raw:       tr.Raw,
		Level:     tr.Level,
		Timestamp: l.clock.ISO8601(),
	}
	out := l.reporter.Report(context.Background(), reading)
	l.tracker.RecordReport(out, t)
}

// ensureSynced retries NTP while the clock is unsynced, so a failed startup
// sync does not hold back reports until the next heartbeat.
func (l *loop) ensureSynced() {
	if l.clock.Synced() || l.resync == nil {
		return
	}
	if err := l.resync(context.Background()); err != nil {
		l.log.Warn("clock sync failed", zap.Error(err))
	}
}

func (l *loop) publish(tr logic.Transition) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(mqtt.NewEvent(l.reporter.DeviceID(), tr)); err != nil {
		// Don't crash on publish failure
		l.log.Warn("publish error", zap.Error(err))
	}
}

func (l *loop) beat(hb *logic.HeartbeatData, detector *logic.Detector) {
	l.log.Info("heartbeat",
		zap.Duration("uptime", hb.Uptime),
		zap.Int("low", hb.Counts.Low),
		zap.Int("medium", hb.Counts.Medium),
		zap.Int("high", hb.Counts.High),
	)

	l.ensureSynced()

	// Refresh network and host info for heartbeat
	if net := readNetworkInfo(); net != nil {
		l.tracker.SetNetwork(net)
	}
	if l.hostInfo != nil {
		host, err := l.hostInfo()
		if err != nil {
			l.log.Debug("host info incomplete", zap.Error(err))
		}
		if host != nil {
			l.tracker.SetHost(host)
		}
	}

	if l.publisher == nil {
		return
	}
	l.syncLinks()
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warn("heartbeat publish error", zap.Error(err))
	}
}

// refresh updates the status tracker for HTTP and live consumers.
func (l *loop) refresh(detector *logic.Detector, raw int, t time.Time) {
	l.tracker.Update(detector.Last(), raw, detector.Counts(), t)
	l.syncLinks()
	if l.live != nil {
		l.live.BroadcastStatus(l.tracker.Snapshot())
	}
}

func (l *loop) syncLinks() {
	l.tracker.SetConnectivity(l.network.IsConnected(), l.store.Ready(), l.clock.Synced())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) shutdown(s os.Signal, t time.Time) {
	l.log.Info("shutting down", zap.Stringer("signal", s))
	l.driver.Off()

	if l.publisher == nil {
		return
	}
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	l.syncLinks()
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warn("failed to publish shutdown event", zap.Error(err))
	} else {
		l.log.Info("published shutdown event")
	}
}
