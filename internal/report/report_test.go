package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/logic"
	"github.com/sweeney/water-sensor/internal/store"
)

const (
	device = "B8:27:EB:12:34:56"
	ts     = "2026-01-01T12:00:00Z"
)

func newTestReporter(policy UnsyncedPolicy) (*Reporter, *store.FakeStore) {
	st := store.NewReadyFakeStore()
	return New(st, device, policy, zap.NewNop()), st
}

func TestDevicePath(t *testing.T) {
	assert.Equal(t, "water_sensor/B8:27:EB:12:34:56/readings", DevicePath(device))
}

func TestReportLowWritesOnce(t *testing.T) {
	r, st := newTestReporter(UnsyncedSkip)

	out := r.Report(context.Background(), logic.Reading{Raw: 1500, Level: logic.LevelLow, Timestamp: ts})

	assert.True(t, out.OK())
	assert.Equal(t, []string{DevicePath(device) + "/" + ts}, st.Paths())
	assert.Equal(t, logic.Record{DeviceID: device, Raw: 1500, State: "LOW", Timestamp: ts}, st.Writes[0].Record)
}

func TestReportMediumWritesOnce(t *testing.T) {
	r, st := newTestReporter(UnsyncedSkip)
	r.Report(context.Background(), logic.Reading{Raw: 2000, Level: logic.LevelMedium, Timestamp: ts})
	assert.Len(t, st.Writes, 1)
}

func TestReportHighDuplicatesToAlerts(t *testing.T) {
	r, st := newTestReporter(UnsyncedSkip)

	out := r.Report(context.Background(), logic.Reading{Raw: 2500, Level: logic.LevelHigh, Timestamp: ts})

	require.Len(t, out.Writes, 2)
	assert.Equal(t, []string{DevicePath(device) + "/" + ts, "alerts/" + ts}, st.Paths())
	assert.Equal(t, st.Writes[0].Record, st.Writes[1].Record)
	assert.True(t, out.OK())
}

func TestReportAlertIndependentOfDeviceWrite(t *testing.T) {
	r, st := newTestReporter(UnsyncedSkip)
	st.PathErrors[DevicePath(device)+"/"+ts] = errors.New("PERMISSION_DENIED")

	out := r.Report(context.Background(), logic.Reading{Raw: 2500, Level: logic.LevelHigh, Timestamp: ts})

	require.Len(t, out.Writes, 2)
	assert.Error(t, out.Writes[0].Err)
	assert.NoError(t, out.Writes[1].Err)
	assert.Equal(t, 1, out.Failed())
	assert.False(t, out.OK())
	assert.Contains(t, st.Docs, "alerts/"+ts)
}

func TestReportNoRetryOnFailure(t *testing.T) {
	r, st := newTestReporter(UnsyncedSkip)
	st.CreateError = errors.New("deadline exceeded")

	out := r.Report(context.Background(), logic.Reading{Raw: 1000, Level: logic.LevelLow, Timestamp: ts})

	assert.Equal(t, 1, out.Failed())
	assert.Len(t, st.Writes, 1)
}

func TestReportUnsyncedSkip(t *testing.T) {
	r, st := newTestReporter(UnsyncedSkip)

	out := r.Report(context.Background(), logic.Reading{Raw: 2500, Level: logic.LevelHigh})

	assert.True(t, out.Skipped)
	assert.False(t, out.OK())
	assert.Empty(t, st.Writes)
}

func TestReportUnsyncedFallbackKeys(t *testing.T) {
	r, st := newTestReporter(UnsyncedFallback)
	ctx := context.Background()

	r.Report(ctx, logic.Reading{Raw: 2500, Level: logic.LevelHigh})
	r.Report(ctx, logic.Reading{Raw: 1000, Level: logic.LevelLow})

	prefix := "unsynced-" + r.BootID() + "-"
	paths := st.Paths()
	require.Len(t, paths, 3)
	assert.Equal(t, DevicePath(device)+"/"+prefix+"1", paths[0])
	assert.Equal(t, "alerts/"+prefix+"1", paths[1])
	assert.Equal(t, DevicePath(device)+"/"+prefix+"2", paths[2])
	for _, p := range paths {
		assert.False(t, strings.HasSuffix(p, "/"), "degenerate path %q", p)
	}
	assert.Empty(t, st.Writes[0].Record.Timestamp)
}

func TestReportBootIDUniquePerReporter(t *testing.T) {
	a, _ := newTestReporter(UnsyncedFallback)
	b, _ := newTestReporter(UnsyncedFallback)
	assert.NotEqual(t, a.BootID(), b.BootID())
}

func TestParseUnsyncedPolicy(t *testing.T) {
	p, err := ParseUnsyncedPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnsyncedSkip, p)

	p, err = ParseUnsyncedPolicy("fallback")
	require.NoError(t, err)
	assert.Equal(t, UnsyncedFallback, p)

	_, err = ParseUnsyncedPolicy("buffer")
	assert.Error(t, err)
}
