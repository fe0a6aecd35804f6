package db

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/funnelx/pkg/db"
)

func testApp(out *bytes.Buffer) *cli.App {
	flags := []cli.Flag{&cli.StringFlag{Name: "output-dir"}, &cli.IntFlag{Name: "limit", Value: 20}}
	return &cli.App{
		Name:           "funnelx",
		Writer:         out,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{{
			Name: "db",
			Subcommands: []*cli.Command{
				{Name: "runs", Flags: flags, Action: RunsAction},
				{Name: "run", Flags: flags, Action: RunAction},
			},
		}},
	}
}

func seedRun(t *testing.T, dir string) string {
	t.Helper()
	database, err := dbpkg.Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer database.Close()

	run := &dbpkg.Run{FunnelSelection: "medication_v1", MaxRecords: 500, DateFrom: "2025-08-01T00:00:00Z"}
	if err := database.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	fr := dbpkg.FunnelRun{RunID: run.RunID, FunnelKey: "medication_v1", Fetched: 12, Complete: 5, Partial: 7, AllPath: "/tmp/x_all.csv"}
	if err := database.InsertFunnelRun(fr); err != nil {
		t.Fatalf("InsertFunnelRun() error = %v", err)
	}
	if err := database.FinishRun(run.RunID, dbpkg.StatusSucceeded, time.Now()); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	return run.RunID
}

func TestRunsAndRunActions(t *testing.T) {
	dir := t.TempDir()
	runID := seedRun(t, dir)

	var out bytes.Buffer
	if err := testApp(&out).Run([]string{"funnelx", "db", "runs", "--output-dir", dir}); err != nil {
		t.Fatalf("db runs error = %v", err)
	}
	if !strings.Contains(out.String(), runID) || !strings.Contains(out.String(), "Total: 1 runs") {
		t.Errorf("db runs output:\n%s", out.String())
	}

	out.Reset()
	if err := testApp(&out).Run([]string{"funnelx", "db", "run", "--output-dir", dir}); err != nil {
		t.Fatalf("db run error = %v", err)
	}
	for _, want := range []string{"Run " + runID, "Status:        succeeded", "Complete: 5", "/tmp/x_all.csv", "2025-08-01T00:00:00Z..now"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("db run output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunActionWithoutRuns(t *testing.T) {
	var out bytes.Buffer
	err := testApp(&out).Run([]string{"funnelx", "db", "run", "--output-dir", t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "no runs found") {
		t.Errorf("db run error = %v, want no runs found", err)
	}

	out.Reset()
	if err := testApp(&out).Run([]string{"funnelx", "db", "runs", "--output-dir", t.TempDir()}); err != nil {
		t.Fatalf("db runs error = %v", err)
	}
	if !strings.Contains(out.String(), "No runs found") {
		t.Errorf("db runs output = %q", out.String())
	}
}
