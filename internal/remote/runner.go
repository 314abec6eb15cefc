// Package remote executes commands on compute hosts over a remote shell.
package remote

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Result holds the outcome of one remote command.
type Result struct {
	Stdout   string        // 标准输出
	Stderr   string        // 标准错误输出
	ExitCode int           // 退出码（无法执行时为 127，被取消时为 -1）
	Err      error         // 执行错误
	Duration time.Duration // 执行耗时
}

// Success reports whether the command ran and exited zero.
func (r *Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Runner runs a command on a remote host.
// Implementations must honour ctx cancellation by terminating the command.
type Runner interface {
	Run(ctx context.Context, host string, args ...string) *Result
	// Command renders the full argv that Run would execute.
	Command(host string, args ...string) []string
}

// SSHRunner runs commands through a remote shell binary such as ssh.
// The argv is `<Shell> <Options...> <host> <args...>`.
type SSHRunner struct {
	Shell   string
	Options []string
	logger  zerolog.Logger
}

// NewSSHRunner creates a runner for the given shell and pass-through options.
func NewSSHRunner(shell string, options []string, logger zerolog.Logger) *SSHRunner {
	if shell == "" {
		shell = "ssh"
	}
	opts := make([]string, len(options))
	copy(opts, options)
	return &SSHRunner{
		Shell:   shell,
		Options: opts,
		logger:  logger.With().Str("component", "ssh-runner").Logger(),
	}
}

// Command returns the argv for running args on host.
func (r *SSHRunner) Command(host string, args ...string) []string {
	argv := make([]string, 0, 2+len(r.Options)+len(args))
	argv = append(argv, r.Shell)
	argv = append(argv, r.Options...)
	argv = append(argv, host)
	argv = append(argv, args...)
	return argv
}

// Run executes args on host and waits for completion or ctx cancellation.
func (r *SSHRunner) Run(ctx context.Context, host string, args ...string) *Result {
	argv := r.Command(host, args...)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// Do not let a hung ssh hold its pipes open after the kill.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug().Str("host", host).Strs("argv", argv).Msg("running remote command")

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res
	}

	res.Err = err
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		res.Err = ctxErr
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res
	}

	// Not found on PATH (*exec.Error) or an absolute path that does not exist.
	res.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
		res.ExitCode = 127
	}
	return res
}
