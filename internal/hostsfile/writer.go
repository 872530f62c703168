package hostsfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the tri-state result of a hosts write.
type Outcome int

const (
	Success Outcome = iota
	UserCancelled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case UserCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Result describes a finished write. Sandboxed is set when the hosts file
// turned out to be on a read-only filesystem.
type Result struct {
	Outcome   Outcome
	Detail    string
	Sandboxed bool
}

// Err maps the result onto the models error taxonomy; nil on Success.
func (r Result) Err() error {
	switch r.Outcome {
	case Success:
		return nil
	case UserCancelled:
		return fmt.Errorf("%w: %s", models.ErrElevationCancelled, r.Detail)
	}
	if r.Sandboxed {
		return fmt.Errorf("%w: %w: %s", models.ErrElevationFailed, models.ErrSandboxed, r.Detail)
	}
	return fmt.Errorf("%w: %s", models.ErrElevationFailed, r.Detail)
}

// exitDismissed is the status pkexec exits with when its dialog is dismissed.
const exitDismissed = 126

// verifySample is how many leading characters of the trimmed texts are
// compared when deciding whether a write landed.
const verifySample = 100

var (
	cancelPhrases = []string{
		"user did not grant permission",
		"request dismissed",
		"not authorized",
		"authentication canceled",
		"user canceled",
		"the operation was canceled by the user",
	}
	readOnlyPhrases = []string{
		"read-only file system",
		"只读文件系统",
	}
)

// ElevationError is the single shape every elevation failure is normalized
// into before its message is inspected.
type ElevationError struct {
	Message  string
	ExitCode int
}

func (e *ElevationError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s (exit %d)", e.Message, e.ExitCode)
	}
	return e.Message
}

func normalizeElevationError(err error, out Output) *ElevationError {
	ee := &ElevationError{}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ee.ExitCode = exitErr.ExitCode()
	}
	parts := make([]string, 0, 2)
	if msg := strings.TrimSpace(err.Error()); msg != "" && ee.ExitCode == 0 {
		parts = append(parts, msg)
	}
	if msg := strings.TrimSpace(out.Stderr); msg != "" {
		parts = append(parts, msg)
	}
	if len(parts) == 0 && ee.ExitCode != 0 {
		parts = append(parts, err.Error())
	}
	ee.Message = strings.Join(parts, ": ")
	return ee
}

func containsAny(s string, phrases []string) bool {
	s = strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Writer replaces the hosts file through an Elevator and verifies the result.
type Writer struct {
	file     *File
	elevator Elevator
	tempDir  string
	goos     string
	log      *zap.Logger
}

// NewWriter returns a Writer staging temp files in the OS temp directory.
func NewWriter(file *File, elevator Elevator, log *zap.Logger) *Writer {
	return &Writer{
		file:     file,
		elevator: elevator,
		tempDir:  os.TempDir(),
		goos:     runtime.GOOS,
		log:      log,
	}
}

func (w *Writer) copyCommand(tmp string) string {
	if w.goos == "windows" {
		// Windows paths cannot contain double quotes.
		return fmt.Sprintf(`type "%s" > "%s"`, tmp, w.file.Path)
	}
	return fmt.Sprintf("cat %s > %s", shellQuote(tmp), shellQuote(w.file.Path))
}

// shellQuote wraps s in single quotes for sh, escaping embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Write replaces the hosts file with content. The read-back comparison, not
// the elevation helper's exit status, decides success.
func (w *Writer) Write(ctx context.Context, content string) Result {
	tmp := filepath.Join(w.tempDir, "hosts-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return Result{Outcome: Failed, Detail: fmt.Sprintf("stage temp file: %v", err)}
	}

	cmd := Command{Command: w.copyCommand(tmp), Name: "Hosts Config"}
	w.log.Debug("running elevated copy", zap.String("command", cmd.Command))
	out, err := w.elevator.Exec(ctx, cmd)

	if rmErr := os.Remove(tmp); rmErr != nil {
		w.log.Warn("failed to remove temp file", zap.String("path", tmp), zap.Error(rmErr))
	}

	if err != nil {
		ee := normalizeElevationError(err, out)
		w.log.Info("elevated copy reported error", zap.Error(ee))
		switch {
		case ee.ExitCode == exitDismissed, containsAny(ee.Message, cancelPhrases):
			return Result{Outcome: UserCancelled, Detail: "user declined the elevation prompt"}
		case containsAny(ee.Message, readOnlyPhrases):
			return Result{
				Outcome:   Failed,
				Sandboxed: true,
				Detail:    "hosts file is on a read-only filesystem; sandboxed environments cannot write system files",
			}
		case ee.Message != "":
			return Result{Outcome: Failed, Detail: "write hosts: " + ee.Message}
		}
		// no usable message: let the read-back decide
	}

	actual, rerr := w.file.Read()
	if rerr != nil {
		return Result{Outcome: Failed, Detail: rerr.Error()}
	}
	if !contentMatches(content, actual) {
		w.log.Warn("hosts content mismatch after write",
			zap.Int("expected_len", len(strings.TrimSpace(content))),
			zap.Int("actual_len", len(strings.TrimSpace(actual))))
		return Result{Outcome: Failed, Detail: "write hosts: content verification failed"}
	}
	return Result{Outcome: Success}
}

// contentMatches compares trimmed texts: equal, same first 100 characters,
// same length, or one containing the other. A truncated file that is a
// prefix or substring of the intended text also passes.
func contentMatches(expected, actual string) bool {
	e := strings.TrimSpace(expected)
	a := strings.TrimSpace(actual)
	if e == a {
		return true
	}
	if a == "" || e == "" {
		return false
	}
	n := min(verifySample, len(e), len(a))
	if e[:n] == a[:n] {
		return true
	}
	if len(e) == len(a) {
		return true
	}
	return strings.Contains(a, e) || strings.Contains(e, a)
}
