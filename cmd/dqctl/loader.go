package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/query"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// datasetName derives a dataset name from a CSV path.
func datasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseAssignments splits repeated name=value flags. Later values for the
// same name win.
func parseAssignments(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--%s %q: expected name=value", flag, v)
		}
		out[name] = value
	}
	return out, nil
}

// parseMapping decodes a JSON object of semantic field to column.
func parseMapping(raw string) (dataset.FieldMapping, error) {
	if raw == "" {
		return nil, nil
	}
	var m dataset.FieldMapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("mapping must be a JSON object of strings: %w", err)
	}
	return m, nil
}

// loadMappings collects per-dataset mappings from a YAML or JSON file plus
// name=JSON flags. Flags override the file.
func loadMappings(file string, flags []string) (map[string]dataset.FieldMapping, error) {
	out := make(map[string]dataset.FieldMapping)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read mappings: %w", err)
		}
		// YAML is a superset of JSON, so one decoder reads both.
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse mappings %s: %w", file, err)
		}
	}

	assigned, err := parseAssignments("mapping", flags)
	if err != nil {
		return nil, err
	}
	for name, raw := range assigned {
		m, err := parseMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("--mapping %s: %w", name, err)
		}
		out[name] = m
	}
	return out, nil
}

// loadRequest describes the datasets a command works on.
type loadRequest struct {
	paths    []string
	mappings map[string]dataset.FieldMapping
	queries  map[string]string
	dataRoot string
	maxSize  int64
}

// loadDatasets reads every CSV concurrently, builds its dataset and applies
// the dataset's query. The result keeps the order of paths.
func loadDatasets(ctx context.Context, req loadRequest) ([]*dataset.Dataset, error) {
	names := make(map[string]bool, len(req.paths))
	for _, p := range req.paths {
		name := datasetName(p)
		if names[name] {
			return nil, fmt.Errorf("dataset %q given twice", name)
		}
		names[name] = true
	}
	for name := range req.mappings {
		if !names[name] {
			return nil, fmt.Errorf("mapping for unknown dataset %q", name)
		}
	}
	for name := range req.queries {
		if !names[name] {
			return nil, fmt.Errorf("query for unknown dataset %q", name)
		}
	}

	out := make([]*dataset.Dataset, len(req.paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range req.paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds, err := loadDataset(path, req)
			if err != nil {
				return err
			}
			out[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func loadDataset(path string, req loadRequest) (*dataset.Dataset, error) {
	name := datasetName(path)

	frame, err := tabular.ReadCSVFile(path, req.maxSize)
	if err != nil {
		return nil, err
	}

	root := req.dataRoot
	if root == "" {
		root = filepath.Dir(path)
	}
	ds := dataset.New(name, frame, req.mappings[name], dataset.WithDataRoot(root))

	if q, ok := req.queries[name]; ok {
		ds, err = query.Apply(ds, query.Translate(q))
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
	}

	slog.Debug("dataset loaded", "dataset", name, "path", path, "rows", ds.Len())
	return ds, nil
}
