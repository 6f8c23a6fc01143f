package shared

import "testing"

func TestOpenBrowser(t *testing.T) {
	t.Run("unsupported platform", func(t *testing.T) {
		original := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = original }()

		if err := OpenBrowser("http://localhost:3000"); err == nil {
			t.Error("expected an error on an unsupported platform")
		}
	})
}
