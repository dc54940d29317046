// Package statefile implements the optional process-control collaborator
// spec §6 describes: status/pid/log files under a known runtime directory
// that let an external supervisor (systemd, a shell wrapper) observe this
// daemon without the daemon depending on it for anything.
package statefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Status is the value written to the status file.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Files bundles the paths of one instance's state files, all living under
// dir/name.
type Files struct {
	StatusPath string
	PIDPath    string
	LogPath    string
}

// New returns the Files for name under dir, without touching the
// filesystem.
func New(dir, name string) Files {
	base := filepath.Join(dir, name)
	return Files{
		StatusPath: base + ".status",
		PIDPath:    base + ".pid",
		LogPath:    base + ".log",
	}
}

// WriteStarting writes the pid file and an initial status, creating dir if
// needed. Call this once at process start.
func (f Files) WriteStarting() error {
	if err := os.MkdirAll(filepath.Dir(f.StatusPath), 0755); err != nil {
		return fmt.Errorf("statefile: create dir: %w", err)
	}
	if err := atomicWrite(f.PIDPath, []byte(strconv.Itoa(os.Getpid()))); err != nil {
		return fmt.Errorf("statefile: write pid: %w", err)
	}
	return f.WriteStatus(StatusStarting)
}

// WriteStatus atomically overwrites the status file with s and the current
// time, so a reader can tell a stale file from a live one.
func (f Files) WriteStatus(s Status) error {
	body := fmt.Sprintf("%s\n%s\n", s, time.Now().UTC().Format(time.RFC3339))
	if err := atomicWrite(f.StatusPath, []byte(body)); err != nil {
		return fmt.Errorf("statefile: write status: %w", err)
	}
	return nil
}

// Remove deletes every file this instance may have written. Errors for
// already-missing files are ignored; anything else is returned.
func (f Files) Remove() error {
	for _, p := range []string{f.StatusPath, f.PIDPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("statefile: remove %s: %w", p, err)
		}
	}
	return nil
}

// atomicWrite writes data to path by writing a sibling temp file and
// renaming it into place, so a concurrent reader never observes a partial
// write.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
