package models

import (
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{StatusRunning, StatusWaitingForUser, true},
		{StatusRunning, StatusChecking, true},
		{StatusWaitingForUser, StatusChecking, true},
		{StatusChecking, StatusValid, true},
		{StatusChecking, StatusInvalid, true},
		{StatusWaitingForUser, StatusRunning, false},
		{StatusChecking, StatusWaitingForUser, false},
		{StatusValid, StatusInvalid, false},
		{StatusValid, StatusChecking, false},
		{StatusInvalid, StatusRunning, false},
		{StatusRunning, StatusRunning, false},
		{StatusChecking, JobStatus("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []JobStatus{StatusRunning, StatusWaitingForUser, StatusChecking} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []JobStatus{StatusValid, StatusInvalid} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
