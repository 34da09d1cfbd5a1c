package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/srodi/spike-spy/pkg/frame"
	"github.com/srodi/spike-spy/pkg/logger"
	"github.com/srodi/spike-spy/pkg/report"
	"github.com/srodi/spike-spy/pkg/system"
	"github.com/srodi/spike-spy/pkg/types"
	"github.com/srodi/spike-spy/pkg/ui"
)

type fakeProvider struct {
	cpuTotal   float64
	procs      []types.Process
	refreshErr error
	refreshes  int
	onRefresh  func(n int)
}

func (p *fakeProvider) Refresh(context.Context) error {
	p.refreshes++
	if p.onRefresh != nil {
		p.onRefresh(p.refreshes)
	}
	return p.refreshErr
}

func (p *fakeProvider) CPUTotal() float64 { return p.cpuTotal }

func (p *fakeProvider) Processes() []types.Process { return p.procs }

func (p *fakeProvider) Process(pid types.PID) (types.Process, bool) {
	for _, proc := range p.procs {
		if proc.PID == pid {
			return proc, true
		}
	}
	return types.Process{}, false
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func defaultSettings() Settings {
	return Settings{
		SpikeThreshold: 10,
		UpdateInterval: time.Hour,
		FrameUpdates:   true,
		NoiseFloor:     types.DefaultNoiseFloor,
		Policy:         frame.AllPolicy(),
	}
}

type harness struct {
	provider *fakeProvider
	state    *system.State
	out      *bytes.Buffer
	logs     *bytes.Buffer
	monitor  *Monitor
}

func newHarness(t *testing.T, provider *fakeProvider, settings Settings) *harness {
	t.Helper()
	state, err := system.New(context.Background(), provider)
	if err != nil {
		t.Fatalf("system.New: %v", err)
	}
	h := &harness{provider: provider, state: state, out: &bytes.Buffer{}, logs: &bytes.Buffer{}}
	h.monitor = New(state, settings, h.out, ui.Palette{}, logger.New("debug", "text", h.logs))
	return h
}

func baselineCPU(t *testing.T, s *system.State, pid types.PID) float64 {
	t.Helper()
	snap, ok := s.Baseline().Get(pid)
	if !ok {
		t.Fatalf("pid %d missing from baseline", pid)
	}
	return snap.CPU()
}

func TestTickReportsSpikeAndCommitsFrame(t *testing.T) {
	p := &fakeProvider{cpuTotal: 10, procs: []types.Process{
		{PID: 1, Name: "steady", CPUPercent: 5, MemoryBytes: 1 << 20},
		{PID: 3, Name: "gone", CPUPercent: 50},
	}}
	h := newHarness(t, p, defaultSettings())

	p.cpuTotal = 40
	p.procs = []types.Process{
		{PID: 1, Name: "steady", CPUPercent: 60, MemoryBytes: 1 << 20},
		{PID: 2, Name: "newcomer", CPUPercent: 20, MemoryBytes: 4096},
	}

	outcome, err := h.monitor.Tick(context.Background())
	if err != nil || outcome != Spike {
		t.Fatalf("expected spike, got %v (%v)", outcome, err)
	}
	out := h.out.String()
	for _, want := range []string{"ΔCPU=30.00%", "Top CPU offenders", "steady", "55.00", "newcomer", "20.00", "1024KB", "4096B"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gone") {
		t.Fatalf("exited process should not be reported:\n%s", out)
	}
	if strings.Index(out, "steady") > strings.Index(out, "newcomer") {
		t.Fatalf("offenders not ranked by delta:\n%s", out)
	}
	if h.state.BaselineCPU() != 40 {
		t.Fatalf("aggregate baseline not committed: %v", h.state.BaselineCPU())
	}
	if got := baselineCPU(t, h.state, 2); got != 20 {
		t.Fatalf("frame baseline not committed, pid 2 cpu %v", got)
	}
	if !strings.Contains(h.logs.String(), "spike_id=") {
		t.Fatalf("spike log line missing id: %s", h.logs.String())
	}
}

func TestTickSpikeHonoursPolicyAndFilters(t *testing.T) {
	p := &fakeProvider{cpuTotal: 0, procs: []types.Process{{PID: 1, Name: "a"}, {PID: 2, Name: "b"}, {PID: 3, Name: "kworker/0:0"}}}
	settings := defaultSettings()
	settings.Policy = frame.TopNPolicy(2)
	settings.Filters = report.FilterConfig{HideKernel: true}
	h := newHarness(t, p, settings)

	p.cpuTotal = 50
	p.procs = []types.Process{{PID: 1, Name: "a", CPUPercent: 10}, {PID: 2, Name: "b", CPUPercent: 30}, {PID: 3, Name: "kworker/0:0", CPUPercent: 90}}

	if outcome, err := h.monitor.Tick(context.Background()); err != nil || outcome != Spike {
		t.Fatalf("expected spike, got %v (%v)", outcome, err)
	}
	out := h.out.String()
	if strings.Contains(out, "kworker") || strings.Contains(out, "10.00") {
		t.Fatalf("top-2 then kernel filter should leave only b:\n%s", out)
	}
	if !strings.Contains(out, "30.00") {
		t.Fatalf("expected b in output:\n%s", out)
	}
}

func TestTickSpikeWithoutOffendersPrintsHeaderOnly(t *testing.T) {
	p := &fakeProvider{cpuTotal: 5, procs: []types.Process{{PID: 1, Name: "idle", CPUPercent: 1}}}
	h := newHarness(t, p, defaultSettings())

	p.cpuTotal = 30
	if outcome, err := h.monitor.Tick(context.Background()); err != nil || outcome != Spike {
		t.Fatalf("expected spike, got %v (%v)", outcome, err)
	}
	if got := h.out.String(); got != "[CPU usage spike detected! ΔCPU=25.00%]\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTickAggregateOnlyLeavesFrame(t *testing.T) {
	p := &fakeProvider{cpuTotal: 10, procs: []types.Process{{PID: 1, CPUPercent: 5}}}
	h := newHarness(t, p, defaultSettings())
	committedAt := h.state.LastCommit()

	p.cpuTotal = 15
	p.procs = []types.Process{{PID: 1, CPUPercent: 9}}

	outcome, err := h.monitor.Tick(context.Background())
	if err != nil || outcome != Aggregate {
		t.Fatalf("expected aggregate commit, got %v (%v)", outcome, err)
	}
	if h.state.BaselineCPU() != 15 {
		t.Fatalf("aggregate baseline should advance, got %v", h.state.BaselineCPU())
	}
	if got := baselineCPU(t, h.state, 1); got != 5 {
		t.Fatalf("frame baseline should be untouched, pid 1 cpu %v", got)
	}
	if !h.state.LastCommit().Equal(committedAt) {
		t.Fatalf("frame timestamp should be untouched")
	}
	if h.out.Len() != 0 {
		t.Fatalf("aggregate tick should print nothing, got %q", h.out.String())
	}
}

func TestTickThresholdIsStrict(t *testing.T) {
	p := &fakeProvider{cpuTotal: 10}
	h := newHarness(t, p, defaultSettings())

	p.cpuTotal = 20
	if outcome, _ := h.monitor.Tick(context.Background()); outcome != Aggregate {
		t.Fatalf("delta equal to threshold is not a spike, got %v", outcome)
	}
}

func TestTickNegativeDeltaLowersBaseline(t *testing.T) {
	p := &fakeProvider{cpuTotal: 80}
	h := newHarness(t, p, defaultSettings())

	p.cpuTotal = 20
	if outcome, err := h.monitor.Tick(context.Background()); err != nil || outcome != Aggregate {
		t.Fatalf("expected aggregate commit, got %v (%v)", outcome, err)
	}
	p.cpuTotal = 35
	if outcome, _ := h.monitor.Tick(context.Background()); outcome != Spike {
		t.Fatalf("rise from lowered baseline should spike, got %v", outcome)
	}
}

func TestTickFrameUpdate(t *testing.T) {
	cases := []struct {
		name     string
		suppress bool
		want     string
	}{
		{name: "announced", want: "[Frame update]\n"},
		{name: "suppressed", suppress: true, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{cpuTotal: 10, procs: []types.Process{{PID: 1, CPUPercent: 5}}}
			settings := defaultSettings()
			settings.UpdateInterval = 0
			settings.SuppressUpdate = tc.suppress
			h := newHarness(t, p, settings)

			p.cpuTotal = 12
			p.procs = []types.Process{{PID: 1, CPUPercent: 7}}
			time.Sleep(time.Millisecond)

			outcome, err := h.monitor.Tick(context.Background())
			if err != nil || outcome != FrameUpdate {
				t.Fatalf("expected frame update, got %v (%v)", outcome, err)
			}
			if h.out.String() != tc.want {
				t.Fatalf("unexpected output %q", h.out.String())
			}
			if got := baselineCPU(t, h.state, 1); got != 7 {
				t.Fatalf("frame baseline should advance, pid 1 cpu %v", got)
			}
			if h.state.BaselineCPU() != 12 {
				t.Fatalf("aggregate should advance with the frame, got %v", h.state.BaselineCPU())
			}
		})
	}
}

func TestTickFrameUpdatesDisabled(t *testing.T) {
	p := &fakeProvider{cpuTotal: 10}
	settings := defaultSettings()
	settings.UpdateInterval = 0
	settings.FrameUpdates = false
	h := newHarness(t, p, settings)

	time.Sleep(time.Millisecond)
	if outcome, _ := h.monitor.Tick(context.Background()); outcome != Aggregate {
		t.Fatalf("disabled frame updates should commit aggregate only, got %v", outcome)
	}
}

func TestTickSkipsOnRefreshFailure(t *testing.T) {
	p := &fakeProvider{cpuTotal: 10, procs: []types.Process{{PID: 1, CPUPercent: 5}}}
	h := newHarness(t, p, defaultSettings())

	p.refreshErr = errors.New("proc read failed")
	p.cpuTotal = 90

	outcome, err := h.monitor.Tick(context.Background())
	if err != nil || outcome != Skipped {
		t.Fatalf("expected skipped tick, got %v (%v)", outcome, err)
	}
	if h.state.BaselineCPU() != 10 {
		t.Fatalf("baseline must not move on a skipped tick")
	}
	if !strings.Contains(h.logs.String(), "refresh failed") || !strings.Contains(h.logs.String(), "level=warning") {
		t.Fatalf("expected warn log, got %s", h.logs.String())
	}
}

func TestTickReturnsWriteErrors(t *testing.T) {
	p := &fakeProvider{cpuTotal: 0}
	state, err := system.New(context.Background(), p)
	if err != nil {
		t.Fatalf("system.New: %v", err)
	}
	m := New(state, defaultSettings(), failingWriter{}, ui.Palette{}, logger.New("error", "text", &bytes.Buffer{}))

	p.cpuTotal = 50
	if _, err := m.Tick(context.Background()); err == nil {
		t.Fatalf("expected write error")
	}
	if state.BaselineCPU() != 0 {
		t.Fatalf("baseline should not advance when the report could not be written")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakeProvider{cpuTotal: 10}
	h := newHarness(t, p, defaultSettings())
	p.onRefresh = func(n int) {
		if n == 4 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- h.monitor.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	if p.refreshes != 4 {
		t.Fatalf("expected 3 ticks after the initial refresh, got %d refreshes", p.refreshes)
	}
}

func TestRunInterruptsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{cpuTotal: 10}
	settings := defaultSettings()
	settings.PollInterval = time.Hour
	h := newHarness(t, p, settings)
	p.onRefresh = func(int) { cancel() }

	done := make(chan error, 1)
	go func() { done <- h.monitor.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cancel should interrupt the poll sleep")
	}
}

func TestRunReturnsTickError(t *testing.T) {
	p := &fakeProvider{cpuTotal: 0}
	state, err := system.New(context.Background(), p)
	if err != nil {
		t.Fatalf("system.New: %v", err)
	}
	p.cpuTotal = 50
	m := New(state, defaultSettings(), failingWriter{}, ui.Palette{}, logger.New("error", "text", &bytes.Buffer{}))
	if err := m.Run(context.Background()); err == nil {
		t.Fatalf("expected run to surface write error")
	}
}

func TestOutcomeString(t *testing.T) {
	for outcome, want := range map[Outcome]string{Skipped: "skipped", Aggregate: "aggregate", FrameUpdate: "frame-update", Spike: "spike", Outcome(9): "outcome(9)"} {
		if got := outcome.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", int(outcome), got, want)
		}
	}
}
