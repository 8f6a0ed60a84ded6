package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/dataquality/internal/config"
	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/report"
	"github.com/JonMunkholm/dataquality/internal/tabular"

	// Register the built-in metrics and charts.
	_ "github.com/JonMunkholm/dataquality/internal/report/charts"
	_ "github.com/JonMunkholm/dataquality/internal/report/metrics"
)

// Service provides the data-quality operations behind the HTTP API and CLI.
type Service struct {
	store       tabular.Store
	dataRoot    string
	maxFileSize int64

	limiter  *ReportLimiter
	plan     report.Plan
	reducer  report.Reducer
	failFast bool

	logger *slog.Logger
}

// NewService creates a Service over store. The report plan is read from
// cfg.Report.PlanFile when set, otherwise the built-in plan is used.
func NewService(store tabular.Store, cfg *config.Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("service requires a store")
	}

	plan := report.DefaultPlan()
	if cfg.Report.PlanFile != "" {
		p, err := report.LoadPlan(cfg.Report.PlanFile)
		if err != nil {
			return nil, fmt.Errorf("load report plan: %w", err)
		}
		plan = p
	}

	reducer, err := report.ReducerByName(cfg.Report.Reducer)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}

	return &Service{
		store:       store,
		dataRoot:    root,
		maxFileSize: cfg.Data.MaxFileSize,
		limiter:     NewReportLimiter(cfg.Report.MaxConcurrent, cfg.Report.MaxWaitTime),
		plan:        plan,
		reducer:     reducer,
		failFast:    cfg.Report.FailFast,
		logger:      logging.New("core"),
	}, nil
}

// DataRoot returns the absolute data directory.
func (s *Service) DataRoot() string { return s.dataRoot }

// Plan returns the report plan in use.
func (s *Service) Plan() report.Plan { return s.plan }

// ListFiles returns the CSV files directly inside the data root, sorted.
// A missing data root yields an empty list.
func (s *Service) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dataRoot)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list data root: %w", err)
	}

	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileMetadata reads a CSV file and reports its shape.
func (s *Service) FileMetadata(name string) (FileMetadata, error) {
	frame, err := s.readFile(name)
	if err != nil {
		return FileMetadata{}, err
	}

	missing := 0
	for _, n := range frame.MissingValues() {
		missing += n
	}

	cols := frame.Columns
	if len(cols) > PreviewColumns {
		cols = cols[:PreviewColumns]
	}

	return FileMetadata{
		Filename:      name,
		Features:      len(frame.Columns),
		Rows:          frame.Len(),
		MissingValues: missing,
		Cols:          append([]string{}, cols...),
	}, nil
}

// Data returns every row of a CSV file.
func (s *Service) Data(name string) ([]tabular.Row, error) {
	frame, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	return frame.Rows, nil
}

// Header returns the column names of a CSV file.
func (s *Service) Header(name string) ([]string, error) {
	path, err := s.filePath(name)
	if err != nil {
		return nil, err
	}
	return tabular.ReadHeader(path)
}

// readFile parses the named CSV file under the size limit.
func (s *Service) readFile(name string) (*tabular.Frame, error) {
	path, err := s.filePath(name)
	if err != nil {
		return nil, err
	}
	return tabular.ReadCSVFile(path, s.maxFileSize)
}

// filePath resolves a file name in the data root. Names must be bare file
// names ending in .csv.
func (s *Service) filePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", ErrInvalidRequest, name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}

	path := filepath.Join(s.dataRoot, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return path, nil
}

// tableName strips a trailing .csv so a file name and its registered
// dataset can be used interchangeably.
func tableName(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return name[:len(name)-len(".csv")]
	}
	return name
}

// LimiterStatus returns the report limiter state for monitoring.
func (s *Service) LimiterStatus() ReportLimiterStatus {
	return s.limiter.Status()
}

// WaitForReports blocks until in-flight reports finish or ctx is done.
func (s *Service) WaitForReports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
