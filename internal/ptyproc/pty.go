// Package ptyproc spawns the agent CLI under a real pseudo-terminal sized to
// the emulator's fixed grid, and implements the paste-mode-avoidance submit
// protocol the agent's line editor requires (spec §4.6/§5.6).
//
// No library in the pack provides PTY allocation (the teacher shells out to
// the agent binary over plain stdio pipes, not a PTY), so this package opens
// /dev/ptmx directly via golang.org/x/sys/unix, which the teacher already
// depends on transitively through golang.org/x/term.
package ptyproc

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Cols and Rows must track internal/vterm's grid exactly: the agent renders
// to whatever size its PTY reports, and the emulator assumes it is always
// exactly this size.
const (
	Cols = 120
	Rows = 40
)

// Process is one spawned agent CLI running inside its own PTY.
type Process struct {
	cmd *exec.Cmd
	pty *os.File
}

// Spawn starts name/args under a new PTY sized Cols x Rows, with dir as the
// working directory and env appended to the current process's environment.
func Spawn(name string, args []string, dir string, env []string) (*Process, error) {
	ptyFile, ttyName, err := openPTY()
	if err != nil {
		return nil, fmt.Errorf("ptyproc: open pty: %w", err)
	}
	if err := resize(ptyFile, Cols, Rows); err != nil {
		ptyFile.Close()
		return nil, fmt.Errorf("ptyproc: set size: %w", err)
	}

	tty, err := os.OpenFile(ttyName, os.O_RDWR, 0)
	if err != nil {
		ptyFile.Close()
		return nil, fmt.Errorf("ptyproc: open tty slave: %w", err)
	}
	defer tty.Close()

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		ptyFile.Close()
		return nil, fmt.Errorf("ptyproc: start: %w", err)
	}

	return &Process{cmd: cmd, pty: ptyFile}, nil
}

// Read reads whatever output the agent has produced since the last read. It
// is safe to call on a cadence (the supervisor's 300ms poll loop); it is
// the caller's job to make the underlying fd non-blocking-friendly by
// reading in a separate goroutine if a single read would stall.
func (p *Process) Read(buf []byte) (int, error) {
	return p.pty.Read(buf)
}

// Write sends raw bytes to the agent's stdin (the PTY master).
func (p *Process) Write(b []byte) (int, error) {
	return p.pty.Write(b)
}

// Submit implements the paste-mode-avoidance protocol: write the text, wait
// long enough for the line editor's paste-detection window to close, then
// write a lone carriage return to submit. Sending text and the terminator
// in one write is interpreted by the agent's line editor as a paste and the
// newline is swallowed instead of submitting.
func (p *Process) Submit(text string) error {
	if _, err := p.Write([]byte(text)); err != nil {
		return fmt.Errorf("ptyproc: write text: %w", err)
	}
	time.Sleep(160 * time.Millisecond)
	if _, err := p.Write([]byte("\r")); err != nil {
		return fmt.Errorf("ptyproc: write terminator: %w", err)
	}
	return nil
}

// SendKeys writes raw control bytes directly, bypassing the submit protocol
// — used for single keystrokes like arrow-key menu navigation or Enter on a
// tool-approval prompt.
func (p *Process) SendKeys(raw []byte) error {
	_, err := p.Write(raw)
	return err
}

// Signal sends a signal to the agent process.
func (p *Process) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

// Wait blocks until the agent process exits and returns its exit status.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	p.pty.Close()
	return err
}

// Close releases the PTY master without waiting on the child.
func (p *Process) Close() error {
	return p.pty.Close()
}

func resize(f *os.File, cols, rows int) error {
	ws := &unix.Winsize{Col: uint16(cols), Row: uint16(rows)}
	return unix.IoctlSetWinsize(int(f.Fd()), unix.TIOCSWINSZ, ws)
}

// openPTY opens a new PTY master via /dev/ptmx and returns the master file
// plus the path to its paired slave device.
func openPTY() (*os.File, string, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, "", err
	}

	fd := int(master.Fd())
	if err := unix.IoctlSetInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, "", err
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, "", err
	}
	return master, fmt.Sprintf("/dev/pts/%d", n), nil
}
