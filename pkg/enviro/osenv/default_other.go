//go:build !windows

package osenv

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Options selects backend locations. Empty fields use the defaults.
type Options struct {
	UserFile    string
	MachineFile string
}

// DefaultMachineFile is read by pam_env for every login session.
const DefaultMachineFile = "/etc/environment"

// DefaultUserFile returns the systemd environment.d drop-in managed by enviro.
func DefaultUserFile() string {
	return filepath.Join(xdg.ConfigHome, "environment.d", "60-enviro.conf")
}

// Default returns the platform backend.
func Default(opts Options) Environment {
	user := opts.UserFile
	if user == "" {
		user = DefaultUserFile()
	}
	machine := opts.MachineFile
	if machine == "" {
		machine = DefaultMachineFile
	}
	return NewFileEnv(user, machine)
}
