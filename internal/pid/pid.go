package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/helvik/tapowatt/internal/errors"
)

const pidFile = "tapowatt.pid"

// Write writes the current process ID to a PID file. The plug rejects
// overlapping sessions, so a second concurrent monitor is refused here
// rather than failing mid-loop.
func Write() error {
	pid := os.Getpid()
	path := filepath.Join(os.TempDir(), pidFile)

	if _, err := os.Stat(path); err == nil {
		// PID file exists, check if the process is running
		bytes, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}

		previous, err := strconv.Atoi(string(bytes))
		if err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}

		process, err := os.FindProcess(previous)
		if err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}

		if err := process.Signal(syscall.Signal(0)); err == nil {
			return errors.New(errors.ErrAlreadyRunning)
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove() error {
	path := filepath.Join(os.TempDir(), pidFile)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}
