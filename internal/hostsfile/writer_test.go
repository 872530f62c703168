package hostsfile

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var copyRe = regexp.MustCompile(`^cat '(.+)' > '(.+)'$`)

func unquote(s string) string { return strings.ReplaceAll(s, `'\''`, "'") }

// fakeElevator performs the copy itself unless told otherwise, then returns
// the configured output and error.
type fakeElevator struct {
	copy     bool
	override *string
	out      Output
	err      error

	calls []Command
}

func (f *fakeElevator) Exec(_ context.Context, cmd Command) (Output, error) {
	f.calls = append(f.calls, cmd)
	m := copyRe.FindStringSubmatch(cmd.Command)
	if m == nil {
		return Output{}, errors.New("unexpected command " + cmd.Command)
	}
	if f.copy {
		data, err := os.ReadFile(unquote(m[1]))
		if err != nil {
			return Output{}, err
		}
		if f.override != nil {
			data = []byte(*f.override)
		}
		if err := os.WriteFile(unquote(m[2]), data, 0644); err != nil {
			return Output{}, err
		}
	}
	return f.out, f.err
}

func newTestWriter(t *testing.T, initial string, el Elevator) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	hosts := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(hosts, []byte(initial), 0644))

	w := NewWriter(NewFile(hosts), el, zap.NewNop())
	w.tempDir = filepath.Join(dir, "tmp")
	w.goos = "linux"
	require.NoError(t, os.MkdirAll(w.tempDir, 0755))
	return w, hosts
}

func tempFiles(t *testing.T, w *Writer) []string {
	t.Helper()
	entries, err := os.ReadDir(w.tempDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWrite_Success(t *testing.T) {
	el := &fakeElevator{copy: true}
	w, hosts := newTestWriter(t, "old\n", el)

	res := w.Write(context.Background(), "127.0.0.1 localhost\n")
	assert.Equal(t, Success, res.Outcome)
	assert.NoError(t, res.Err())

	got, _ := os.ReadFile(hosts)
	assert.Equal(t, "127.0.0.1 localhost\n", string(got))
	assert.Empty(t, tempFiles(t, w), "temp file must be removed")

	require.Len(t, el.calls, 1)
	assert.Equal(t, "Hosts Config", el.calls[0].Name)
	assert.True(t, strings.Contains(el.calls[0].Command, "hosts-"))
}

func TestWrite_UniqueTempNames(t *testing.T) {
	el := &fakeElevator{copy: true}
	w, _ := newTestWriter(t, "", el)
	w.Write(context.Background(), "a")
	w.Write(context.Background(), "b")

	require.Len(t, el.calls, 2)
	assert.NotEqual(t, el.calls[0].Command, el.calls[1].Command)
}

func TestWrite_UserCancelled(t *testing.T) {
	el := &fakeElevator{err: errors.New("User did not grant permission.")}
	w, hosts := newTestWriter(t, "old\n", el)

	res := w.Write(context.Background(), "new\n")
	assert.Equal(t, UserCancelled, res.Outcome)
	assert.True(t, errors.Is(res.Err(), models.ErrElevationCancelled))

	got, _ := os.ReadFile(hosts)
	assert.Equal(t, "old\n", string(got))
	assert.Empty(t, tempFiles(t, w))
}

func TestWrite_CancelledViaStderr(t *testing.T) {
	el := &fakeElevator{
		out: Output{Stderr: "Error executing command as another user: Request dismissed"},
		err: &exec.ExitError{},
	}
	w, _ := newTestWriter(t, "old\n", el)

	res := w.Write(context.Background(), "new\n")
	assert.Equal(t, UserCancelled, res.Outcome)
}

func TestWrite_Exit126Cancelled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	exitErr := exec.Command("sh", "-c", "exit 126").Run()
	require.Error(t, exitErr)

	w, hosts := newTestWriter(t, "old\n", &fakeElevator{err: exitErr})
	res := w.Write(context.Background(), "new\n")
	assert.Equal(t, UserCancelled, res.Outcome)
	assert.ErrorIs(t, res.Err(), models.ErrElevationCancelled)

	got, _ := os.ReadFile(hosts)
	assert.Equal(t, "old\n", string(got))
}

func TestWrite_UACDeclined(t *testing.T) {
	el := &fakeElevator{
		out: Output{Stderr: "Start-Process : This command cannot be run due to the error: The operation was canceled by the user."},
		err: &exec.ExitError{},
	}
	w, _ := newTestWriter(t, "old\n", el)
	assert.Equal(t, UserCancelled, w.Write(context.Background(), "new\n").Outcome)
}

func TestWrite_QuotesPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	el, err := NewShellElevator("")
	require.NoError(t, err)
	el.goos = "linux"

	dir := t.TempDir()
	hosts := filepath.Join(dir, `it's "$HOME" hosts`)
	require.NoError(t, os.WriteFile(hosts, []byte("old\n"), 0644))
	w := NewWriter(NewFile(hosts), el, zap.NewNop())
	w.goos = "linux"
	w.tempDir = filepath.Join(dir, "t'mp $x")
	require.NoError(t, os.MkdirAll(w.tempDir, 0755))

	res := w.Write(context.Background(), "10.0.0.1 api.local\n")
	require.Equal(t, Success, res.Outcome, res.Detail)
	got, err := os.ReadFile(hosts)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1 api.local\n", string(got))
	assert.Empty(t, tempFiles(t, w))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'/tmp/a b'`, shellQuote("/tmp/a b"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, `'$HOME'`, shellQuote("$HOME"))
}

func TestWrite_ReadOnlyFilesystem(t *testing.T) {
	for _, msg := range []string{
		"sh: /etc/hosts: Read-only file system",
		"sh: /etc/hosts: 只读文件系统",
	} {
		el := &fakeElevator{err: errors.New(msg)}
		w, _ := newTestWriter(t, "old\n", el)

		res := w.Write(context.Background(), "new\n")
		assert.Equal(t, Failed, res.Outcome)
		assert.True(t, res.Sandboxed)
		err := res.Err()
		assert.True(t, errors.Is(err, models.ErrElevationFailed))
		assert.True(t, errors.Is(err, models.ErrSandboxed))
		assert.Contains(t, res.Detail, "sandbox")
	}
}

func TestWrite_OtherErrorIsRaw(t *testing.T) {
	el := &fakeElevator{copy: true, err: errors.New("helper crashed")}
	w, _ := newTestWriter(t, "old\n", el)

	res := w.Write(context.Background(), "new\n")
	assert.Equal(t, Failed, res.Outcome)
	assert.False(t, res.Sandboxed)
	assert.Equal(t, "write hosts: helper crashed", res.Detail)
	assert.True(t, errors.Is(res.Err(), models.ErrElevationFailed))
}

func TestWrite_AmbiguousErrorVerifiedByReadBack(t *testing.T) {
	el := &fakeElevator{copy: true, err: errors.New("  ")}
	w, _ := newTestWriter(t, "old\n", el)

	res := w.Write(context.Background(), "127.0.0.1 new\n")
	assert.Equal(t, Success, res.Outcome)
}

func TestWrite_AmbiguousErrorNoChange(t *testing.T) {
	el := &fakeElevator{err: errors.New("")}
	w, _ := newTestWriter(t, "completely different old content\n", el)

	res := w.Write(context.Background(), "new content here, much longer than before\n")
	assert.Equal(t, Failed, res.Outcome)
	assert.Contains(t, res.Detail, "verification")
}

func TestWrite_ContentMismatch(t *testing.T) {
	other := "10.0.0.1 something.else\n"
	el := &fakeElevator{copy: true, override: &other}
	w, _ := newTestWriter(t, "", el)

	res := w.Write(context.Background(), "127.0.0.1 localhost localhost.localdomain\n")
	assert.Equal(t, Failed, res.Outcome)
	assert.True(t, errors.Is(res.Err(), models.ErrElevationFailed))
}

func TestWrite_HostsUnreadableAfterWrite(t *testing.T) {
	el := &fakeElevator{}
	w, hosts := newTestWriter(t, "", el)
	require.NoError(t, os.Remove(hosts))

	res := w.Write(context.Background(), "x")
	assert.Equal(t, Failed, res.Outcome)
	assert.Contains(t, res.Detail, "read hosts")
}

func TestContentMatches(t *testing.T) {
	long := strings.Repeat("127.0.0.1 a.example\n", 10)
	cases := []struct {
		name     string
		expected string
		actual   string
		want     bool
	}{
		{"exact", "a\n", "a\n", true},
		{"trimmed", "a\n", "\n a \n\n", true},
		{"first 100 chars, trailing whitespace differs", long + "   \n\t", long + "\n# tail", true},
		{"equal length", "abc", "abd", true},
		{"actual contains expected", "xyz", "# added by os\nxyz\n# more", true},
		{"expected contains actual", "# head\nxyz\n# tail", "xyz", true},
		{"mismatch", "127.0.0.1 one", "10.0.0.1 another", false},
		{"empty actual", "127.0.0.1 one", "", false},
		{"both empty", "", "  ", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, contentMatches(tc.expected, tc.actual))
		})
	}
}

func TestNormalizeElevationError(t *testing.T) {
	ee := normalizeElevationError(errors.New("boom"), Output{Stderr: "details\n"})
	assert.Equal(t, "boom: details", ee.Message)

	ee = normalizeElevationError(errors.New(""), Output{})
	assert.Equal(t, "", ee.Message)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Outcome: Success}.Err())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "cancelled", UserCancelled.String())
	assert.Equal(t, "failed", Failed.String())
}
