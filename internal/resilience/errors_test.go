package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", Transient("provision", errors.New("boom")), true},
		{"wrapped explicit", eris.Wrap(Transient("upload", errors.New("boom")), "artifact"), true},
		{"net timeout", timeoutErr{}, true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"sqlite locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"ftp busy", errors.New("450 Requested file action not taken"), true},
		{"duplicate", errors.New("store: duplicate identity"), false},
		{"validation", errors.New("mapping: missing required fields: email"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransient(t *testing.T) {
	if Transient("x", nil) != nil {
		t.Error("nil error should stay nil")
	}

	base := errors.New("reset")
	err := Transient("provision", base)
	if err.Error() != "provision: reset" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("expected Unwrap to expose the cause")
	}
}
