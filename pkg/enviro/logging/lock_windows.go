//go:build windows

package logging

import "golang.org/x/sys/windows"

func (w *RotatingWriter) lock() error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(w.file.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol)
}

func (w *RotatingWriter) unlock() {
	ol := new(windows.Overlapped)
	_ = windows.UnlockFileEx(windows.Handle(w.file.Fd()), 0, 1, 0, ol)
}
