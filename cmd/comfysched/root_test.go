package main

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"monitor", "executor", "serve", "start", "queue"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil {
			t.Fatalf("expected %q to resolve, got err: %v", name, err)
		}
		if cmd.Name() != name {
			t.Fatalf("expected command %q, got %q", name, cmd.Name())
		}
	}
}

func TestQueueSubcommandsRegistered(t *testing.T) {
	want := []string{"ls", "set-priority", "god-mode"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{"queue", name})
		if err != nil {
			t.Fatalf("expected queue %q to resolve, got err: %v", name, err)
		}
		// cobra's Name() trims args from Use, e.g. "set-priority <config-name> <priority>"
		if cmd.Name() != name {
			t.Fatalf("expected queue command %q, got %q", name, cmd.Name())
		}
	}
}
