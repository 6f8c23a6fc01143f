package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/betterd/internal/shared"
)

func TestNewRunner(t *testing.T) {
	t.Run("fills missing options with defaults", func(t *testing.T) {
		r := NewRunner(RunnerOpts{})
		if r.config == nil {
			t.Error("config should default")
		}
		if r.logger == nil {
			t.Error("logger should default")
		}
		if r.output != os.Stdout {
			t.Error("output should default to stdout")
		}
	})

	t.Run("keeps provided options", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := shared.DefaultConfig()
		r := NewRunner(RunnerOpts{Config: cfg, Output: &buf})
		if r.config != cfg {
			t.Error("provided config was replaced")
		}
		if r.output != &buf {
			t.Error("provided output was replaced")
		}
	})
}

func TestRunnerLoadConfig(t *testing.T) {
	t.Run("missing path falls back to the runner config", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		r := NewRunner(RunnerOpts{Config: cfg})
		if got := r.loadConfig(filepath.Join(t.TempDir(), "nope.toml")); got != cfg {
			t.Error("expected fallback to runner config")
		}
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		contents := "[spotify]\nclient_id = \"from-file\"\n"
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		r := NewRunner(RunnerOpts{})
		got := r.loadConfig(path)
		if got.Spotify.ClientID != "from-file" {
			t.Errorf("client_id = %q, want from-file", got.Spotify.ClientID)
		}
	})
}

func TestRunnerWritePlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerOpts{Output: &buf})

	if err := r.writePlain("hello %s\n", "world"); err != nil {
		t.Fatalf("writePlain failed: %v", err)
	}
	if !strings.Contains(buf.String(), "hello world") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRegisterCommands(t *testing.T) {
	r := NewRunner(RunnerOpts{})
	commands := r.register()

	names := make(map[string]bool, len(commands))
	for _, cmd := range commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"setup", "serve"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}
