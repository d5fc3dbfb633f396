package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/tasks"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

type stubRunner struct {
	summary tracker.RunSummary
	err     error
}

func (s *stubRunner) RunNow(_ context.Context, _ tasks.TaskType, cb tasks.Callbacks) (tracker.RunSummary, error) {
	cb.Status("Scraping Ann (1/2)")
	return s.summary, s.err
}

func TestRunOncePrintsSummaryOnUnavailableAPI(t *testing.T) {
	runner := &stubRunner{
		summary: tracker.RunSummary{
			RunID:             "run-1",
			ProfilesProcessed: 1,
			NewFollows:        []tracker.FollowEvent{{CompanyName: "Acme", FollowerName: "Ann"}},
			Failures:          []tracker.ProfileFailure{{Profile: "Bob", Error: "quota exceeded"}},
		},
		err: fmt.Errorf("run finished with failures: %w", linkedin.ErrUnavailable),
	}

	var out bytes.Buffer
	err := runOnce(context.Background(), runner, &out, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("Expected an error for an unavailable API")
	}

	output := out.String()
	for _, want := range []string{
		"Scraping Ann (1/2)",
		"Profiles processed: 1",
		"New follows:        1",
		"Failed:             Bob (quota exceeded)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestRunOnceWithoutRunPrintsNoSummary(t *testing.T) {
	runner := &stubRunner{err: tasks.ErrRunInProgress}

	var out bytes.Buffer
	err := runOnce(context.Background(), runner, &out, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("Expected an error when a run is in progress")
	}
	if strings.Contains(out.String(), "Profiles processed") {
		t.Errorf("No summary expected, got:\n%s", out.String())
	}
}
