// Package testutil provides shared test helpers.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// ReplayClient returns an HTTP client that serves webhook responses from a
// recorded cassette under the calling package's testdata/fixtures. Run with
// VCR_MODE=record to re-record against live endpoints; the recorder is
// stopped automatically when the test finishes.
//
// Interactions are matched on method and fully resolved URL. Bodies and
// headers are ignored: fixtures are handwritten and webhook requests carry
// expanded template values that would make byte-exact matching brittle.
func ReplayClient(t *testing.T, name string) *http.Client {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	r, err := recorder.NewAsMode(filepath.Join("testdata", "fixtures", name), mode, nil)
	if err != nil {
		t.Fatalf("open cassette %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := r.Stop(); err != nil {
			t.Errorf("stop cassette %s: %v", name, err)
		}
	})

	r.SetMatcher(func(req *http.Request, i cassette.Request) bool {
		return req.Method == i.Method && req.URL.String() == i.URL
	})

	return &http.Client{Transport: r}
}
