package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/query"
	"github.com/JonMunkholm/dataquality/internal/report"
)

// ReportTimeout is the maximum duration for generating one report.
var ReportTimeout = 5 * time.Minute

// GeneratedReport is a finished report and its id.
type GeneratedReport struct {
	ID     string
	Result *report.Result
}

// ToJSON returns the report's JSON-safe tree with its id.
func (g *GeneratedReport) ToJSON() map[string]any {
	out := g.Result.ToJSON()
	out["id"] = g.ID
	return out
}

// CreateReport builds one dataset per requested name from the store,
// applies each dataset's optional filter, binds the report plan and
// generates the report.
//
// The number of concurrent reports is bounded; when every slot stays busy
// for the configured wait time, ErrTooManyReports is returned.
func (s *Service) CreateReport(ctx context.Context, req ReportRequest) (*GeneratedReport, error) {
	if len(req.DatasetNames) != len(req.Mappings) {
		return nil, fmt.Errorf("%w: %d dataset names but %d mappings",
			ErrInvalidRequest, len(req.DatasetNames), len(req.Mappings))
	}
	if len(req.Queries) > 0 && len(req.Queries) != len(req.DatasetNames) {
		return nil, fmt.Errorf("%w: %d dataset names but %d queries",
			ErrInvalidRequest, len(req.DatasetNames), len(req.Queries))
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, ReportTimeout)
	defer cancel()

	id := uuid.NewString()
	logger := logging.WithFields(ctx, append([]any{"report_id", id, "datasets", req.DatasetNames}, auditAttrs(ctx)...)...)
	start := time.Now()

	datasets, err := s.loadDatasets(ctx, req)
	if err != nil {
		return nil, err
	}

	opts := []report.Option{report.WithReducer(s.reducer), report.WithLogger(logger)}
	if !s.failFast {
		opts = append(opts, report.WithPartialResults())
	}
	r := report.New(datasets, opts...)
	s.plan.Apply(r, datasets)

	res, err := r.Generate(ctx)
	if err != nil {
		logger.Warn("report failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	logger.Info("report generated",
		"clusters", len(res.Scores),
		"failures", len(res.Failures),
		"duration", time.Since(start),
	)
	return &GeneratedReport{ID: id, Result: res}, nil
}

func (s *Service) loadDatasets(ctx context.Context, req ReportRequest) ([]*dataset.Dataset, error) {
	datasets := make([]*dataset.Dataset, 0, len(req.DatasetNames))
	for i, raw := range req.DatasetNames {
		name := tableName(raw)
		frame, err := s.store.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load dataset %s: %w", name, err)
		}

		ds := dataset.New(name, frame, req.Mappings[i], dataset.WithDataRoot(s.dataRoot))
		if len(req.Queries) > 0 {
			ds, err = query.Apply(ds, query.Translate(req.Queries[i]))
			if err != nil {
				return nil, err
			}
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}
