package logic

import "time"

// DetectChange compares a newly classified level with the last known one.
// The returned level is always newLevel, so calling it again with the same
// level reports no change.
func DetectChange(newLevel, last Level) (bool, Level) {
	return newLevel != last, newLevel
}

// Detector owns the last known level and turns raw samples into transitions.
type Detector struct {
	thresholds Thresholds
	confirm    int

	last         Level
	pending      Level
	pendingCount int

	startTime     time.Time
	counts        LevelCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector that classifies with th.
//
// confirm is the number of consecutive samples a new level must be observed
// before it is accepted. Values <= 1 accept every change immediately. The first
// sample after startup is always accepted.
func NewDetector(th Thresholds, confirm int, startTime time.Time) *Detector {
	if confirm < 1 {
		confirm = 1
	}
	return &Detector{
		thresholds:    th,
		confirm:       confirm,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process classifies a sample, updates the last known level and reports
// whether it changed.
func (d *Detector) Process(input Input) Transition {
	level := d.accept(d.thresholds.Classify(input.Raw))

	from := d.last
	changed, updated := DetectChange(level, d.last)
	d.last = updated

	if changed {
		switch updated {
		case LevelLow:
			d.counts.Low++
		case LevelMedium:
			d.counts.Medium++
		case LevelHigh:
			d.counts.High++
		}
	}

	return Transition{
		Changed: changed,
		From:    from,
		Level:   updated,
		Raw:     input.Raw,
		Time:    input.Time,
	}
}

// accept applies the confirm policy and returns the level to compare against
// the last known one.
func (d *Detector) accept(level Level) Level {
	if d.confirm <= 1 || d.last == LevelUnset || level == d.last {
		d.pending = LevelUnset
		d.pendingCount = 0
		return level
	}

	if level != d.pending {
		d.pending = level
		d.pendingCount = 1
	} else {
		d.pendingCount++
	}

	if d.pendingCount >= d.confirm {
		d.pending = LevelUnset
		d.pendingCount = 0
		return level
	}
	return d.last
}

// Last returns the last accepted level.
func (d *Detector) Last() Level {
	return d.last
}

// Counts returns a copy of the level entry counts.
func (d *Detector) Counts() LevelCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if no level has been observed yet,
// if the interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if d.last == LevelUnset {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.counts,
	}
}
