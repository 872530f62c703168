// Package hostsfile locates, reads, backs up and (through an elevation
// helper) rewrites the operating system hosts file.
package hostsfile

import (
	"os"
	"path/filepath"
	"runtime"
)

// BackupName is the first-run copy of the system hosts file.
const BackupName = "hosts.backup"

// SystemPath returns the hosts file location for the running OS.
func SystemPath() string {
	if runtime.GOOS == "windows" {
		windir := os.Getenv("SystemRoot")
		if windir == "" {
			windir = `C:\Windows`
		}
		return filepath.Join(windir, "System32", "drivers", "etc", "hosts")
	}
	return "/etc/hosts"
}

// DocumentsDir resolves the user's documents directory. On Windows and macOS
// it is ~/Documents. Elsewhere the first existing of ~/Documents and ~/文档 is
// used, and ~/Documents is created when neither exists. The home directory is
// returned if creation fails.
func DocumentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return documentsDir(runtime.GOOS, home)
}

func documentsDir(goos, home string) string {
	docs := filepath.Join(home, "Documents")
	if goos == "windows" || goos == "darwin" {
		return docs
	}
	if isDir(docs) {
		return docs
	}
	if localized := filepath.Join(home, "文档"); isDir(localized) {
		return localized
	}
	if err := os.MkdirAll(docs, 0755); err != nil {
		return home
	}
	return docs
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
