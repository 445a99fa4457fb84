package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Process is a handle on a spawned daemon.
type Process interface {
	Pid() int
	Wait() error
	Terminate() error
}

// Executor abstracts command execution for testability.
type Executor interface {
	// Output runs binary to completion and returns its combined output.
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
	// Start spawns binary in its own process group without waiting for it.
	Start(binary string, args ...string) (Process, error)
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return out.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return out.Bytes(), err
	}
	return out.Bytes(), nil
}

func (commandExecutor) Start(binary string, args ...string) (Process, error) {
	cmd := exec.Command(binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &commandProcess{cmd: cmd}, nil
}

type commandProcess struct {
	cmd *exec.Cmd
}

func (p *commandProcess) Pid() int { return p.cmd.Process.Pid }

func (p *commandProcess) Wait() error { return p.cmd.Wait() }

// Terminate signals the whole process group so children of the daemon exit too.
func (p *commandProcess) Terminate() error {
	if err := unix.Kill(-p.cmd.Process.Pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		return err
	}
	return nil
}
