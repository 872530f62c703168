package hostsfile

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/atinyakov/HostsBox/internal/models"
	atomicfile "github.com/natefinch/atomic"
	"go.uber.org/zap"
)

// File is the hosts file at a fixed path.
type File struct {
	Path string
}

// NewFile returns a File for path, or for SystemPath when path is empty.
func NewFile(path string) *File {
	if path == "" {
		path = SystemPath()
	}
	return &File{Path: path}
}

// Read returns the current hosts text. Errors wrap models.ErrReadHosts.
func (f *File) Read() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrReadHosts, err)
	}
	return string(data), nil
}

// Backup copies the hosts file to dir/hosts.backup unless that file already
// exists. skipped reports whether an existing backup was kept.
func (f *File) Backup(dir string) (path string, skipped bool, err error) {
	path = filepath.Join(dir, BackupName)
	if _, err := os.Stat(path); err == nil {
		return path, true, nil
	}

	content, err := f.Read()
	if err != nil {
		return path, false, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return path, false, fmt.Errorf("backup dir: %w", err)
	}
	if err := atomicfile.WriteFile(path, bytes.NewReader([]byte(content))); err != nil {
		return path, false, fmt.Errorf("write backup: %w", err)
	}
	return path, false, nil
}

// Starter launches a command without waiting for it.
type Starter func(name string, args ...string) error

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Opener reveals the hosts file in the OS file browser.
type Opener struct {
	file  *File
	start Starter
	log   *zap.Logger
}

// NewOpener returns an Opener for f. A nil start uses os/exec.
func NewOpener(f *File, start Starter, log *zap.Logger) *Opener {
	if start == nil {
		start = startDetached
	}
	return &Opener{file: f, start: start, log: log}
}

// Open invokes the platform file browser. It only reports whether the OS
// call could be made.
func (o *Opener) Open() error {
	name, args := revealCommand(runtime.GOOS, o.file.Path)
	if err := o.start(name, args...); err != nil {
		o.log.Warn("open hosts dir", zap.String("path", o.file.Path), zap.Error(err))
		return fmt.Errorf("open hosts dir: %w", err)
	}
	return nil
}

func revealCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{"/select," + path}
	case "darwin":
		return "open", []string{"-R", path}
	default:
		return "xdg-open", []string{filepath.Dir(path)}
	}
}
