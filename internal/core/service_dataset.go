package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dataquality/internal/dataset"
	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/query"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// CreateDataset reads <root>/<name>.csv, registers it in the store under
// name and returns its rows projected through mapping, each with its row
// number under idx. Registering an existing name replaces it.
func (s *Service) CreateDataset(ctx context.Context, name string, mapping dataset.FieldMapping) ([]map[string]any, error) {
	name = tableName(name)
	frame, err := s.readFile(name + ".csv")
	if err != nil {
		return nil, err
	}

	ds := dataset.New(name, frame, mapping, dataset.WithDataRoot(s.dataRoot))
	meta, err := ds.Metadata()
	if err != nil {
		return nil, err
	}

	if err := s.store.Register(ctx, name, frame); err != nil {
		return nil, fmt.Errorf("register dataset %s: %w", name, err)
	}

	logging.FromContext(ctx).Info("dataset registered", append([]any{
		"dataset", name,
		"rows", frame.Len(),
		"columns", len(frame.Columns),
		"fields", mapping.Keys(),
	}, auditAttrs(ctx)...)...)
	return meta, nil
}

// ListDatasets returns the registered dataset names.
func (s *Service) ListDatasets(ctx context.Context) ([]string, error) {
	return s.store.Tables(ctx)
}

// DropDataset removes a registered dataset.
func (s *Service) DropDataset(ctx context.Context, name string) error {
	name = tableName(name)
	if err := s.store.Drop(ctx, name); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("dataset dropped", append([]any{"dataset", name}, auditAttrs(ctx)...)...)
	return nil
}

// QueryDataset returns the rows of a registered dataset that satisfy q.
// Without a mapping the query addresses raw column names; with one it may
// also use the mapping's semantic names.
func (s *Service) QueryDataset(ctx context.Context, name, q string, mapping dataset.FieldMapping) ([]tabular.Row, error) {
	name = tableName(name)
	frame, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	pred := query.Translate(q)
	if len(mapping) == 0 {
		out, err := query.ApplyFrame(frame, pred)
		if err != nil {
			return nil, fmt.Errorf("filter dataset %s: %w", name, err)
		}
		return out.Rows, nil
	}

	ds, err := query.Apply(dataset.New(name, frame, mapping), pred)
	if err != nil {
		return nil, err
	}
	return ds.Frame().Rows, nil
}

// Record returns the record at index of a registered dataset, decoding its
// payload from the data root when the mapping declares model_input.
func (s *Service) Record(ctx context.Context, name string, index int, mapping dataset.FieldMapping) (RecordView, error) {
	name = tableName(name)
	frame, err := s.store.Load(ctx, name)
	if err != nil {
		return RecordView{}, err
	}

	ds := dataset.New(name, frame, mapping, dataset.WithDataRoot(s.dataRoot))
	rec, err := ds.Get(index)
	if err != nil {
		return RecordView{}, err
	}

	return RecordView{
		Index:   index,
		Fields:  rec.Fields,
		Label:   rec.Label,
		Payload: rec.Payload,
	}, nil
}
