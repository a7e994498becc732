package digest

import (
	"context"
	"errors"
	"snapfix/internal/storage/sqlite"
	"sync/atomic"
	"testing"
	"time"
)

type staticLoad struct {
	load []sqlite.DepartmentLoad
	err  error
}

func (s staticLoad) OpenReportLoad(context.Context) ([]sqlite.DepartmentLoad, error) {
	return s.load, s.err
}

type capturePoster struct {
	channel string
	text    string
	calls   int
}

func (c *capturePoster) PostText(_ context.Context, channelID, text string) error {
	c.calls++
	c.channel, c.text = channelID, text
	return nil
}

func TestFormatDigest_Empty(t *testing.T) {
	if got := FormatDigest(nil); got != "📊 No open SnapFix reports." {
		t.Errorf("got %q", got)
	}
}

func TestFormatDigest_GroupsByDepartment(t *testing.T) {
	load := []sqlite.DepartmentLoad{
		{Department: "BESCOM", DeptStatus: "", Count: 3},
		{Department: "BESCOM", DeptStatus: "In Progress", Count: 1},
		{Department: "PWD", DeptStatus: "Assigned", Count: 2},
	}
	got := FormatDigest(load)
	want := "📊 Open SnapFix reports: 6\n• BESCOM: 4 (Unassigned 3, In Progress 1)\n• PWD: 2 (Assigned 2)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPostDigest(t *testing.T) {
	p := &capturePoster{}
	load := staticLoad{load: []sqlite.DepartmentLoad{{Department: "PWD", DeptStatus: "Assigned", Count: 1}}}
	if _, err := PostDigest(context.Background(), load, p, "C1", true); err != nil {
		t.Fatalf("PostDigest failed: %v", err)
	}
	if p.calls != 1 || p.channel != "C1" {
		t.Fatalf("unexpected post: calls=%d channel=%s", p.calls, p.channel)
	}
}

func TestPostDigest_SkipEmpty(t *testing.T) {
	p := &capturePoster{}
	if _, err := PostDigest(context.Background(), staticLoad{}, p, "C1", true); err != nil {
		t.Fatalf("PostDigest failed: %v", err)
	}
	if p.calls != 0 {
		t.Fatalf("expected no post for empty backlog, got %d", p.calls)
	}
	if _, err := PostDigest(context.Background(), staticLoad{}, p, "C1", false); err != nil {
		t.Fatalf("PostDigest failed: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("expected empty digest to post without skip, got %d", p.calls)
	}
}

func TestPostDigest_LoadError(t *testing.T) {
	p := &capturePoster{}
	if _, err := PostDigest(context.Background(), staticLoad{err: errors.New("db locked")}, p, "C1", false); err == nil {
		t.Fatal("expected load error")
	}
	if p.calls != 0 {
		t.Fatal("nothing must be posted on load error")
	}
}

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) Sweep(context.Context, time.Duration, int) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestStartRejectsBadSchedule(t *testing.T) {
	if err := Start(context.Background(), "digest", "not a cron", time.UTC, func(context.Context) {}); err == nil {
		t.Fatal("expected invalid schedule to fail")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &countingSweeper{}
	// Yearly schedule: the job must not fire during the test.
	if err := Start(ctx, "outbox sweep", "0 0 1 1 *", time.UTC, SweepJob(s)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	time.Sleep(10 * time.Millisecond)
	if s.calls.Load() != 0 {
		t.Fatalf("job ran unexpectedly: %d", s.calls.Load())
	}
}

func TestSweepJobCallsSweeper(t *testing.T) {
	s := &countingSweeper{}
	SweepJob(s)(context.Background())
	if s.calls.Load() != 1 {
		t.Fatalf("expected one sweep, got %d", s.calls.Load())
	}
}
