// Package report turns accepted level changes into create-only store writes.
package report

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/store"
)

// AlertsPath is the shared collection that receives a copy of every HIGH record.
const AlertsPath = "alerts"

// DevicePath returns the per-device history collection.
func DevicePath(deviceID string) string {
	return "water_sensor/" + deviceID + "/readings"
}

// UnsyncedPolicy decides what happens to a reading taken before the clock synced.
type UnsyncedPolicy string

const (
	// UnsyncedSkip drops the report.
	UnsyncedSkip UnsyncedPolicy = "skip"
	// UnsyncedFallback keys the documents with "unsynced-<boot id>-<seq>".
	UnsyncedFallback UnsyncedPolicy = "fallback"
)

// ParseUnsyncedPolicy validates a policy name. "" selects UnsyncedSkip.
func ParseUnsyncedPolicy(s string) (UnsyncedPolicy, error) {
	switch UnsyncedPolicy(s) {
	case "", UnsyncedSkip:
		return UnsyncedSkip, nil
	case UnsyncedFallback:
		return UnsyncedFallback, nil
	}
	return "", fmt.Errorf("unknown unsynced policy %q (want skip or fallback)", s)
}

// Write is the result of one create-only write.
type Write struct {
	Path string
	Err  error
}

// Outcome lists the writes attempted for one reading.
type Outcome struct {
	Skipped bool
	Writes  []Write
}

// OK reports whether at least one write was made and none failed.
func (o Outcome) OK() bool {
	return !o.Skipped && len(o.Writes) > 0 && o.Failed() == 0
}

// Failed returns the number of failed writes.
func (o Outcome) Failed() int {
	n := 0
	for _, w := range o.Writes {
		if w.Err != nil {
			n++
		}
	}
	return n
}

// Reporter writes records for one device.
type Reporter struct {
	store    store.Store
	deviceID string
	policy   UnsyncedPolicy
	bootID   string
	seq      uint64
	log      *zap.Logger
}

// New creates a reporter. Each reporter gets a fresh boot id.
func New(st store.Store, deviceID string, policy UnsyncedPolicy, log *zap.Logger) *Reporter {
	if policy == "" {
		policy = UnsyncedSkip
	}
	return &Reporter{
		store:    st,
		deviceID: deviceID,
		policy:   policy,
		bootID:   uuid.NewString(),
		log:      log,
	}
}

// BootID returns the id used in fallback keys.
func (r *Reporter) BootID() string {
	return r.bootID
}

// DeviceID returns the device the reporter writes for.
func (r *Reporter) DeviceID() string {
	return r.deviceID
}

// key returns the document id for a reading, or false if it must be skipped.
func (r *Reporter) key(timestamp string) (string, bool) {
	if timestamp != "" {
		return timestamp, true
	}
	if r.policy != UnsyncedFallback {
		return "", false
	}
	r.seq++
	return "unsynced-" + r.bootID + "-" + strconv.FormatUint(r.seq, 10), true
}

// Report persists reading under the device path and, for HIGH, under the
// alerts path. The two writes are independent and never retried.
func (r *Reporter) Report(ctx context.Context, reading logic.Reading) Outcome {
	key, ok := r.key(reading.Timestamp)
	if !ok {
		r.log.Warn("clock not synced, report skipped",
			zap.String("level", reading.Level.String()),
			zap.Int("raw", reading.Raw),
		)
		return Outcome{Skipped: true}
	}

	rec := logic.NewRecord(r.deviceID, reading)
	paths := []string{DevicePath(r.deviceID) + "/" + key}
	if reading.Level == logic.LevelHigh {
		paths = append(paths, AlertsPath+"/"+key)
	}

	var out Outcome
	for _, path := range paths {
		err := r.store.Create(ctx, path, rec)
		if err != nil {
			r.log.Error("store write failed", zap.String("path", path), zap.Error(err))
		} else {
			r.log.Info("store write ok", zap.String("path", path), zap.String("level", rec.State))
		}
		out.Writes = append(out.Writes, Write{Path: path, Err: err})
	}
	return out
}
