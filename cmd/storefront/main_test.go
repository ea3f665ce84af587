package main

import (
	"testing"

	"github.com/JonMunkholm/storefront/internal/core"
)

func TestNoArgs(t *testing.T) {
	if err := noArgs(acquireCmd, nil); err != nil {
		t.Errorf("noArgs(nil) = %v, want nil", err)
	}

	err := noArgs(normalizeCmd, []string{"extra"})
	if got := core.ExitCode(err); got != core.ExitConfig {
		t.Errorf("ExitCode = %d, want %d", got, core.ExitConfig)
	}
}

func TestSubcommands(t *testing.T) {
	want := map[string]bool{"acquire": false, "normalize": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
