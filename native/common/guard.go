package common

import "errors"

// ErrModulePaused rejects mutating operations while a module's pause switch is
// engaged.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switches maintained by the administrative layer.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the named module is paused. A nil view or empty
// module name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
