//go:build windows

package osenv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/jamesainslie/enviro/pkg/enviro/logging"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

const (
	userKeyPath    = `Environment`
	machineKeyPath = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`

	hwndBroadcast   = 0xffff
	wmSettingChange = 0x001A
	smtoAbortIfHung = 0x0002
)

var procSendMessageTimeout = windows.NewLazySystemDLL("user32.dll").NewProc("SendMessageTimeoutW")

// Registry stores variables in the Windows registry.
type Registry struct {
	logger *logging.Logger
}

// NewRegistry returns the registry backend.
func NewRegistry() *Registry {
	return &Registry{logger: logging.Get("osenv")}
}

func (r *Registry) open(scope types.Scope, access uint32) (registry.Key, error) {
	switch scope {
	case types.ScopeUser:
		return registry.OpenKey(registry.CURRENT_USER, userKeyPath, access)
	case types.ScopeMachine:
		return registry.OpenKey(registry.LOCAL_MACHINE, machineKeyPath, access)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedScope, scope)
	}
}

// Read implements Environment. Expandable values are returned unexpanded.
func (r *Registry) Read(_ context.Context, scope types.Scope) (map[string]string, error) {
	k, err := r.open(scope, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s environment key: %w", scope, err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s variables: %w", scope, err)
	}

	vars := make(map[string]string, len(names))
	for _, name := range names {
		value, _, err := k.GetStringValue(name)
		if errors.Is(err, registry.ErrUnexpectedType) {
			r.logger.Debug("skipping non-string value", "scope", scope, "name", name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s variable %s: %w", scope, name, err)
		}
		vars[name] = value
	}
	return vars, nil
}

// Set implements Environment. An existing REG_EXPAND_SZ keeps its type;
// new values containing '%' are written as REG_EXPAND_SZ.
func (r *Registry) Set(_ context.Context, scope types.Scope, name, value string) error {
	k, err := r.open(scope, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open %s environment key: %w", scope, err)
	}
	defer k.Close()

	expand := strings.Contains(value, "%")
	if _, valType, err := k.GetValue(name, nil); err == nil {
		expand = valType == registry.EXPAND_SZ
	}

	if expand {
		err = k.SetExpandStringValue(name, value)
	} else {
		err = k.SetStringValue(name, value)
	}
	if err != nil {
		return fmt.Errorf("failed to set %s variable %s: %w", scope, name, err)
	}

	r.broadcast()
	return nil
}

// Unset implements Environment.
func (r *Registry) Unset(_ context.Context, scope types.Scope, name string) error {
	k, err := r.open(scope, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open %s environment key: %w", scope, err)
	}
	defer k.Close()

	if err := k.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("failed to unset %s variable %s: %w", scope, name, err)
	}

	r.broadcast()
	return nil
}

// broadcast tells running applications that the environment changed.
// Failures are logged only.
func (r *Registry) broadcast() {
	param, err := windows.UTF16PtrFromString("Environment")
	if err != nil {
		return
	}
	var result uintptr
	ret, _, callErr := procSendMessageTimeout.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(param)),
		smtoAbortIfHung,
		5000,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		r.logger.Warn("environment change broadcast failed", "error", callErr)
	}
}
