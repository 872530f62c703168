package hostsfile

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/shlex"
)

// Command is a shell command to be run with elevated privileges. Name is the
// human-readable label shown by prompts that support one.
type Command struct {
	Command string
	Name    string
}

// Output is what the elevated command printed.
type Output struct {
	Stdout string
	Stderr string
}

// Elevator runs a command with elevated privileges. The returned error is
// not trusted to be meaningful; the Writer verifies by reading the file back.
type Elevator interface {
	Exec(ctx context.Context, cmd Command) (Output, error)
}

// RunAs is the Windows elevation prefix: the command is started through
// PowerShell with the RunAs verb, which raises the UAC prompt.
const RunAs = "runas"

// DefaultElevatePrefix returns the elevation helper used when none is configured.
func DefaultElevatePrefix() string {
	return defaultElevatePrefix(runtime.GOOS)
}

func defaultElevatePrefix(goos string) string {
	switch goos {
	case "windows":
		return RunAs
	case "linux":
		return "pkexec"
	default:
		return "sudo -n"
	}
}

// ShellElevator runs commands through the platform shell behind a helper
// such as pkexec, sudo or a UAC prompt.
type ShellElevator struct {
	prefix []string
	runAs  bool
	goos   string
}

// NewShellElevator parses prefix with shell quoting rules, e.g. "sudo -n".
// An empty prefix runs the shell directly, which only works when the
// process is already privileged.
func NewShellElevator(prefix string) (*ShellElevator, error) {
	parts, err := shlex.Split(prefix)
	if err != nil {
		return nil, fmt.Errorf("parse elevate prefix %q: %w", prefix, err)
	}
	e := &ShellElevator{prefix: parts, goos: runtime.GOOS}
	if len(parts) == 1 && strings.EqualFold(parts[0], RunAs) {
		e.prefix, e.runAs = nil, true
	}
	return e, nil
}

// Argv returns the full argument vector used to run cmd.
func (e *ShellElevator) Argv(cmd Command) []string {
	if e.goos == "windows" && e.runAs {
		return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", runAsScript(cmd.Command)}
	}
	argv := append([]string{}, e.prefix...)
	if e.goos == "windows" {
		return append(argv, "cmd", "/C", cmd.Command)
	}
	return append(argv, "sh", "-c", cmd.Command)
}

// runAsScript starts cmd /C command elevated, waits for it and exits with
// its status. A declined UAC prompt makes Start-Process fail with
// "The operation was canceled by the user".
func runAsScript(command string) string {
	return fmt.Sprintf(
		"$p = Start-Process -FilePath cmd -ArgumentList '/C', '%s' -Verb RunAs -Wait -PassThru -WindowStyle Hidden; exit $p.ExitCode",
		strings.ReplaceAll(command, "'", "''"))
}

// Exec runs cmd and blocks until the helper (and any prompt it shows) exits.
func (e *ShellElevator) Exec(ctx context.Context, cmd Command) (Output, error) {
	argv := e.Argv(cmd)
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, err
}
