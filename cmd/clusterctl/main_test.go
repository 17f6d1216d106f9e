package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/dimcluster/pkg/codec"
)

const scenarioCSV = "timestamp,A,B,C\n0,1,1,10\n1,2,2,20\n2,3,3,30\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_CSV(t *testing.T) {
	path := writeFile(t, "cpu.csv", scenarioCSV)

	out, _, err := runCLI(t, "", "-csv", path, "-eps", "1")
	require.NoError(t, err)

	var resp codec.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, []codec.Pair{{Dimension: "A", Cluster: 0}, {Dimension: "B", Cluster: 0}, {Dimension: "C", Cluster: 1}}, resp.Assignment)
	require.Equal(t, [2]float64{1, 30}, *resp.YDomain)
}

func TestRun_CSVDefaultDimsFollowHeader(t *testing.T) {
	path := writeFile(t, "cpu.csv", "timestamp,C,A,B\n0,10,1,1\n1,20,2,2\n2,30,3,3\n")

	out, _, err := runCLI(t, "", "-csv", path, "-eps", "1")
	require.NoError(t, err)

	var resp codec.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, []codec.Pair{{Dimension: "C", Cluster: 0}, {Dimension: "A", Cluster: 1}, {Dimension: "B", Cluster: 1}}, resp.Assignment)
}

func TestRun_CSVDimsAndWindow(t *testing.T) {
	path := writeFile(t, "cpu.csv", scenarioCSV)

	out, _, err := runCLI(t, "", "-csv", path, "-dims", "A, C", "-window", "2")
	require.NoError(t, err)

	var resp codec.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, []codec.Pair{{Dimension: "A", Cluster: 0}, {Dimension: "C", Cluster: 0}}, resp.Assignment)
	require.Len(t, resp.Clusters[0], 2)
	require.Equal(t, [2]float64{2, 30}, *resp.YDomain)
}

func TestRun_CSVSkipsBadRows(t *testing.T) {
	path := writeFile(t, "cpu.csv", "A,B\n1,1\nx,2\n2,2\n")

	out, stderr, err := runCLI(t, "", "-csv", path, "-eps", "1")
	require.NoError(t, err)
	require.Contains(t, stderr, "line 3")

	var resp codec.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Clusters[0], 2)
}

func TestRun_JSONStdinWithSettingsFile(t *testing.T) {
	settings := writeFile(t, "settings.yaml", "eps: 1.0\n")
	body := `{"rows": [{"timestamp": 0, "A": 1, "B": 1, "C": 10}, {"timestamp": 1, "A": 2, "B": 2, "C": 20}], "dimensions": ["A", "B", "C"]}`

	out, _, err := runCLI(t, body, "-in", "-", "-settings", settings)
	require.NoError(t, err)

	var resp codec.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Clusters, 2)
}

func TestRun_History(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("timestamp,A,B\n")
	for i := 0; i < 22; i++ {
		fmt.Fprintf(&sb, "%d,%d,%d\n", i, i, i)
	}
	path := writeFile(t, "h.csv", sb.String())

	out, _, err := runCLI(t, "", "-csv", path, "-eps", "1", "-history")
	require.NoError(t, err)

	var resp codec.HistoryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Snapshots, 2)
	require.Equal(t, 20, resp.Snapshots[0].Index)
	require.Len(t, resp.Highlights, 1)
}

func TestRun_FlagErrors(t *testing.T) {
	_, _, err := runCLI(t, "")
	require.Error(t, err)

	_, _, err = runCLI(t, "", "-in", "a.json", "-csv", "b.csv")
	require.Error(t, err)

	_, _, err = runCLI(t, "", "-csv", "/nonexistent/file.csv")
	require.Error(t, err)

	path := writeFile(t, "cpu.csv", scenarioCSV)
	_, _, err = runCLI(t, "", "-csv", path, "-eps", "-1")
	require.Error(t, err)
	require.True(t, codec.IsDecodeError(err))
}
