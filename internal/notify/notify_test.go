package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/pkg/types"
)

func TestMain(m *testing.M) {
	i18n.SetLocale(i18n.LocaleEN)
	m.Run()
}

type memoryRecorder struct {
	records []*types.NotificationRecord
	err     error
}

func (r *memoryRecorder) RecordNotification(record *types.NotificationRecord) error {
	r.records = append(r.records, record)
	return r.err
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
}

func TestSend_Darwin(t *testing.T) {
	runner := &RecordingRunner{}
	n := New(WithRunner(runner), WithGOOS("darwin"))

	require.NoError(t, n.Send(context.Background(), Notification{
		Title:   `Say "hi"`,
		Message: `path C:\tmp`,
	}))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"osascript", "-e",
		`display notification "path C:\\tmp" with title "Say \"hi\"" sound name "Glass"`,
	}, calls[0])
}

func TestSend_Linux(t *testing.T) {
	tests := []struct {
		name    string
		urgent  bool
		urgency string
	}{
		{"Normal", false, "--urgency=normal"},
		{"Urgent", true, "--urgency=critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &RecordingRunner{}
			n := New(WithRunner(runner), WithGOOS("linux"))

			require.NoError(t, n.Send(context.Background(), Notification{Title: "T", Message: "M", Urgent: tt.urgent}))
			assert.Equal(t, [][]string{{"notify-send", tt.urgency, "T", "M"}}, runner.Calls())
		})
	}
}

func TestSend_OtherPlatformIsNoop(t *testing.T) {
	runner := &RecordingRunner{}
	recorder := &memoryRecorder{}
	n := New(WithRunner(runner), WithGOOS("windows"), WithRecorder(recorder))

	require.NoError(t, n.Send(context.Background(), Notification{Title: "T", Message: "M"}))
	assert.Empty(t, runner.Calls())
	assert.Len(t, recorder.records, 1)
}

func TestSend_DisabledStillRecords(t *testing.T) {
	runner := &RecordingRunner{}
	recorder := &memoryRecorder{}
	n := New(
		WithRunner(runner),
		WithGOOS("linux"),
		WithRecorder(recorder),
		WithEnabled(false),
		WithClock(fixedClock),
	)

	require.NoError(t, n.Send(context.Background(), Notification{Title: "T", Message: "M", Urgent: true}))

	assert.Empty(t, runner.Calls())
	require.Len(t, recorder.records, 1)
	assert.Equal(t, &types.NotificationRecord{
		Timestamp: fixedClock(),
		Title:     "T",
		Message:   "M",
		Urgent:    true,
		Type:      "notification",
	}, recorder.records[0])
}

func TestSend_MissingBinaryIgnored(t *testing.T) {
	runner := &RecordingRunner{Err: fmt.Errorf("notify-send: %w", exec.ErrNotFound)}
	n := New(WithRunner(runner), WithGOOS("linux"))

	assert.NoError(t, n.Send(context.Background(), Notification{Title: "T", Message: "M"}))
}

func TestSend_RunnerError(t *testing.T) {
	runner := &RecordingRunner{Err: errors.New("exit status 1")}
	n := New(WithRunner(runner), WithGOOS("darwin"))

	assert.Error(t, n.Send(context.Background(), Notification{Title: "T", Message: "M"}))
}

func TestSend_RecorderErrorDoesNotBlock(t *testing.T) {
	runner := &RecordingRunner{}
	n := New(WithRunner(runner), WithGOOS("linux"), WithRecorder(&memoryRecorder{err: errors.New("disk full")}))

	assert.NoError(t, n.Send(context.Background(), Notification{Title: "T", Message: "M"}))
	assert.Len(t, runner.Calls(), 1)
}

type deadlineRunner struct {
	deadline time.Duration
}

func (r *deadlineRunner) Run(ctx context.Context, name string, args ...string) error {
	if d, ok := ctx.Deadline(); ok {
		r.deadline = time.Until(d)
	}
	return nil
}

func TestSend_Timeout(t *testing.T) {
	runner := &deadlineRunner{}
	n := New(WithRunner(runner), WithGOOS("linux"), WithTimeout(2*time.Second))

	require.NoError(t, n.Send(context.Background(), Notification{Title: "T"}))
	assert.Greater(t, runner.deadline, time.Duration(0))
	assert.LessOrEqual(t, runner.deadline, 2*time.Second)
}

func TestSend_DefaultSound(t *testing.T) {
	runner := &RecordingRunner{}
	n := New(WithRunner(runner), WithGOOS("darwin"), WithDefaultSound("Ping"))

	require.NoError(t, n.Send(context.Background(), Notification{Title: "T", Message: "M"}))
	assert.Contains(t, runner.Calls()[0][2], `sound name "Ping"`)
}
