package common

import "testing"

type stubPauseView struct {
	paused map[string]bool
}

func (s stubPauseView) IsPaused(module string) bool {
	return s.paused[module]
}

func TestGuardBlocksPausedModule(t *testing.T) {
	p := stubPauseView{paused: map[string]bool{"lending": true}}
	if err := Guard(p, "lending"); err != ErrModulePaused {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}

func TestGuardAllowsUnpausedModule(t *testing.T) {
	p := stubPauseView{paused: map[string]bool{"lending": true}}
	if err := Guard(p, "rewards"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestGuardNilPauseView(t *testing.T) {
	if err := Guard(nil, "lending"); err != nil {
		t.Fatalf("expected nil PauseView to never block, got %v", err)
	}
}
