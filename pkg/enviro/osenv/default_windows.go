//go:build windows

package osenv

import "golang.org/x/sys/windows"

// Options selects backend locations. They are ignored on Windows, where
// the registry is always used.
type Options struct {
	UserFile    string
	MachineFile string
}

// Default returns the platform backend.
func Default(Options) Environment {
	return NewRegistry()
}

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
