package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"vm-reconcile/internal/remote"
)

// fakeReply scripts the outcome of one command on one host.
type fakeReply struct {
	stdout   string
	stderr   string
	exitCode int
	delay    time.Duration // block for this long, honouring ctx
}

// fakeRunner is a remote.Runner that serves scripted replies and records calls.
type fakeRunner struct {
	mu       sync.Mutex
	replies  map[string]fakeReply // key: host + " " + args
	byHost   map[string]fakeReply // fallback per host
	calls    [][]string
	inflight int
	peak     int
}

var _ remote.Runner = (*fakeRunner)(nil)

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		replies: make(map[string]fakeReply),
		byHost:  make(map[string]fakeReply),
	}
}

// onHost scripts the reply for any command on host.
func (f *fakeRunner) onHost(host string, reply fakeReply) *fakeRunner {
	f.byHost[host] = reply
	return f
}

// on scripts the reply for an exact command on host.
func (f *fakeRunner) on(host string, args []string, reply fakeReply) *fakeRunner {
	f.replies[host+" "+strings.Join(args, " ")] = reply
	return f
}

func (f *fakeRunner) Command(host string, args ...string) []string {
	return append([]string{"ssh", host}, args...)
}

func (f *fakeRunner) Run(ctx context.Context, host string, args ...string) *remote.Result {
	f.mu.Lock()
	f.calls = append(f.calls, f.Command(host, args...))
	reply, ok := f.replies[host+" "+strings.Join(args, " ")]
	if !ok {
		reply = f.byHost[host]
	}
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	start := time.Now()
	if reply.delay > 0 {
		timer := time.NewTimer(reply.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return &remote.Result{ExitCode: -1, Err: ctx.Err(), Duration: time.Since(start)}
		}
	}

	res := &remote.Result{
		Stdout:   reply.stdout,
		Stderr:   reply.stderr,
		ExitCode: reply.exitCode,
		Duration: time.Since(start),
	}
	if reply.exitCode != 0 {
		res.Err = &exitError{code: reply.exitCode}
	}
	return res
}

// Calls returns a copy of the recorded argv list.
func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Peak returns the highest number of concurrent Run calls observed.
func (f *fakeRunner) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// listing renders a virsh list --all table.
func listing(rows ...string) string {
	var sb strings.Builder
	sb.WriteString(" Id   Name                State\n")
	sb.WriteString("------------------------------------\n")
	for _, r := range rows {
		sb.WriteString(" " + r + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
