//go:build unix

package logging

import "golang.org/x/sys/unix"

// lock takes an exclusive advisory lock so several enviro processes can
// append to the same log file.
func (w *RotatingWriter) lock() error {
	return unix.Flock(int(w.file.Fd()), unix.LOCK_EX)
}

func (w *RotatingWriter) unlock() {
	_ = unix.Flock(int(w.file.Fd()), unix.LOCK_UN)
}
