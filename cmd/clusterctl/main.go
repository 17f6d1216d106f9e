// Command clusterctl clusters rows offline, from a JSON request or a CSV
// file, and prints the result as JSON.
//
//	clusterctl -in request.json
//	clusterctl -csv cpu.csv -dims A,B,C -eps 1.5 -window 50
//	clusterctl -csv cpu.csv -settings settings.yaml -history
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nicktill/dimcluster/pkg/api"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
	"github.com/nicktill/dimcluster/pkg/export"
	"github.com/nicktill/dimcluster/pkg/storage"
	"github.com/nicktill/dimcluster/pkg/storage/memory"
)

// csvDataset names the scratch dataset CSV input is loaded into
const csvDataset = "clusterctl"

type options struct {
	in           string
	csv          string
	settingsFile string
	dims         string
	eps          float64
	window       int
	history      bool
	historyDepth int

	set map[string]bool
}

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	req, err := loadRequest(opts, stdin, stderr)
	if err != nil {
		return err
	}

	if err := api.ValidateRequestSize(len(req.Rows), len(req.Dimensions)); err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if opts.history {
		return enc.Encode(api.BuildHistory(req))
	}
	return enc.Encode(codec.NewResponse(cluster.Run(req.Rows, req.Dimensions, req.Settings)))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("clusterctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{set: map[string]bool{}}
	fs.StringVar(&opts.in, "in", "", "JSON request file (- for stdin)")
	fs.StringVar(&opts.csv, "csv", "", "CSV file with a header row")
	fs.StringVar(&opts.settingsFile, "settings", "", "YAML settings file")
	fs.StringVar(&opts.dims, "dims", "", "comma-separated dimensions (default: every CSV column)")
	fs.Float64Var(&opts.eps, "eps", 0, "clustering distance threshold (unset = no clustering)")
	fs.IntVar(&opts.window, "window", 0, "keep only the trailing N rows")
	fs.BoolVar(&opts.history, "history", false, "replay clustering over time and print highlights")
	fs.IntVar(&opts.historyDepth, "history-depth", 0, "snapshots compared for highlights (0 = all)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if (opts.in == "") == (opts.csv == "") {
		return nil, errors.New("exactly one of -in or -csv is required")
	}
	if opts.historyDepth < 0 {
		return nil, fmt.Errorf("-history-depth must be non-negative, got %d", opts.historyDepth)
	}
	return opts, nil
}

// loadRequest builds the request from -in or -csv, then applies the
// settings file and flag overrides in that order.
func loadRequest(opts *options, stdin io.Reader, stderr io.Writer) (codec.HistoryRequest, error) {
	var req codec.HistoryRequest

	if opts.in != "" {
		r, closeFn, err := openInput(opts.in, stdin)
		if err != nil {
			return req, err
		}
		defer closeFn()
		if req, err = codec.DecodeHistoryRequest(r); err != nil {
			return req, err
		}
	} else {
		rows, fields, err := readCSV(opts.csv, stderr)
		if err != nil {
			return req, err
		}
		req.Rows = rows
		req.Dimensions = fields
	}

	if opts.settingsFile != "" {
		data, err := os.ReadFile(opts.settingsFile)
		if err != nil {
			return req, fmt.Errorf("failed to read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &req.Settings); err != nil {
			return req, fmt.Errorf("failed to parse settings %s: %w", opts.settingsFile, err)
		}
	}

	if opts.dims != "" {
		req.Dimensions = splitDims(opts.dims)
	}
	if opts.set["eps"] {
		req.Settings.Eps = cluster.FloatPtr(opts.eps)
	}
	if opts.set["window"] {
		req.Settings.WindowSize = cluster.IntPtr(opts.window)
	}
	if opts.set["history-depth"] {
		req.HistoryDepth = opts.historyDepth
	}

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// readCSV loads the file through the importer into a scratch memory store,
// so CLI and server accept exactly the same CSV.
func readCSV(path string, stderr io.Writer) ([]cluster.Row, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ctx := context.Background()
	store := memory.New()
	defer store.Close()

	result, err := export.NewImporter(store).ImportFromCSV(ctx, f, csvDataset)
	if err != nil {
		return nil, nil, err
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(stderr, "⚠️  skipped %s\n", msg)
	}
	if result.RowsImported == 0 {
		return nil, nil, fmt.Errorf("%s: no valid rows", path)
	}

	info, err := store.Get(ctx, csvDataset)
	if err != nil {
		return nil, nil, err
	}
	rows, err := store.Rows(ctx, csvDataset, storage.RowsRequest{})
	if err != nil {
		return nil, nil, err
	}
	return rows, info.Fields, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func splitDims(s string) []string {
	var dims []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dims = append(dims, d)
		}
	}
	return dims
}
