package extract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/funnelx/pkg/db"
	"github.com/dtnitsch/funnelx/pkg/embeddables/embeddablestest"
)

func testApp(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Name:           "funnelx",
		Writer:         out,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{Name: "extract", Flags: Flags(), Action: ExtractAction},
			{Name: "funnels", Flags: []cli.Flag{&cli.StringFlag{Name: "funnels-file"}}, Action: FunnelsAction},
			{Name: "pages", Action: PagesAction},
		},
	}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	require.True(t, errors.As(err, &ec), "error %v is not an exit coder", err)
	return ec.ExitCode()
}

func TestExtractActionMissingCredentials(t *testing.T) {
	t.Setenv("EMBEDDABLES_API_KEY", "")
	t.Setenv("EMBEDDABLES_PROJECT_ID", "")

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"funnelx", "extract", "--output-dir", t.TempDir()})
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "API key and project ID are required")
}

func TestExtractActionRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown funnel", []string{"--funnel", "nope"}},
		{"bad date", []string{"--date-from", "last tuesday"}},
		{"zero limit", []string{"--limit", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			args := append([]string{"funnelx", "extract", "--api-key", "k", "--project-id", "p", "--output-dir", t.TempDir()}, tt.args...)
			err := testApp(&out).Run(args)
			assert.Equal(t, 2, exitCode(t, err))
		})
	}
}

func TestExtractActionEndToEnd(t *testing.T) {
	t.Setenv("MEDICATION_V1_ID", "flow_med")
	entries := append(
		embeddablestest.Entries(3, "flow_med", "m", testNewest, map[string]interface{}{"highest_page_reached_key": "checkout_page"}),
		embeddablestest.Entries(2, "flow_other", "o", testNewest.Add(-time.Hour), nil)...,
	)
	entries = append(entries, entryAt("qa_1", "flow_med", "checkout_page", nil))
	srv := embeddablestest.NewServer("k", "p", entries)
	defer srv.Close()

	dir := t.TempDir()
	exclusions := filepath.Join(dir, "exclusions.txt")
	require.NoError(t, os.WriteFile(exclusions, []byte("# test entries\nqa_1\n"), 0644))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{
		"funnelx", "extract",
		"--api-key", "k", "--project-id", "p", "--base-url", srv.URL,
		"--funnel", "medication_v1", "--output-dir", dir, "--exclusions", exclusions,
		"--request-delay", "0", "--quiet",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Filtered 1 test entries")

	ledger, err := db.Open(dir)
	require.NoError(t, err)
	defer ledger.Close()
	runID, err := ledger.LatestRunID()
	require.NoError(t, err)
	rows, err := ledger.GetFunnelRuns(runID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Complete)
	assert.Equal(t, 1, rows[0].Excluded)
	assert.Equal(t, 4, rows[0].Fetched)
	assert.Equal(t, []string{"m00000", "m00001", "m00002"}, readIDs(t, rows[0].CompletePath))
	assert.FileExists(t, filepath.Join(dir, "COLUMNS.yaml"))
}

func TestExtractActionExitsOneWhenFunnelFails(t *testing.T) {
	srv := embeddablestest.NewServer("right", "p", nil)
	defer srv.Close()

	var out bytes.Buffer
	err := testApp(&out).Run([]string{
		"funnelx", "extract",
		"--api-key", "wrong", "--project-id", "p", "--base-url", srv.URL,
		"--funnel", "semaglutide_v1", "--output-dir", t.TempDir(), "--quiet",
	})
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, err.Error(), "semaglutide_v1")
}

func TestFunnelsAndPagesActions(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"funnelx", "funnels"}))
	assert.Contains(t, out.String(), "tirzepatide_v1")
	assert.Contains(t, out.String(), "MEDICATION_V1_ID")

	out.Reset()
	require.NoError(t, testApp(&out).Run([]string{"funnelx", "pages"}))
	assert.Contains(t, out.String(), "Terminal page: checkout_page")
	assert.Contains(t, out.String(), "current_height_and_weight")
}
