package webd

import (
	"testing"

	"github.com/rotblauer/catmotion/params"
)

// newTestWebDaemon creates a WebDaemon on a temporary data directory.
// It is closed when the test ends.
func newTestWebDaemon(t *testing.T) *WebDaemon {
	t.Helper()
	config := params.DefaultWebDaemonConfig()
	config.DataDir = t.TempDir()
	config.Address = "127.0.0.1:0"
	d, err := NewWebDaemon(config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}
