package main

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(nil, []string{"sideways"}, zerolog.Nop())
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestIntArg(t *testing.T) {
	if _, err := intArg([]string{"steps"}, "steps"); !errors.Is(err, errUsage) {
		t.Fatalf("missing argument: err = %v, want usage error", err)
	}
	if _, err := intArg([]string{"steps", "two"}, "steps"); !errors.Is(err, errUsage) {
		t.Fatalf("non-numeric argument: err = %v, want usage error", err)
	}
	n, err := intArg([]string{"steps", "-2"}, "steps")
	if err != nil || n != -2 {
		t.Fatalf("intArg = %d, %v; want -2", n, err)
	}
}
