package core

import (
	"errors"

	"github.com/JonMunkholm/dataquality/internal/dataset"
)

var (
	// ErrFileNotFound is returned when a named CSV file does not exist in the data root.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFile is returned for names that are not CSV files.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrInvalidRequest is returned for malformed service requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// PreviewColumns is how many column names FileMetadata reports.
const PreviewColumns = 5

// PreviewSamples is how many leading samples a RecordView carries per channel.
const PreviewSamples = 500

// FileMetadata summarises a CSV file in the data root.
type FileMetadata struct {
	Filename      string   `json:"filename"`
	Features      int      `json:"features"`
	Rows          int      `json:"rows"`
	MissingValues int      `json:"missing_values"`
	Cols          []string `json:"cols"`
}

// ReportRequest names the registered datasets to report on. Mappings pairs
// one field mapping with each name; Queries is optional and, when present,
// holds one filter per dataset (empty selects every row).
type ReportRequest struct {
	DatasetNames []string               `json:"dataset_names"`
	Mappings     []dataset.FieldMapping `json:"mappings"`
	Queries      []string               `json:"queries"`
}

// RecordView summarises one dataset record for display. The payload is
// reported by kind and shape with a bounded preview of its values.
type RecordView struct {
	Index   int
	Fields  dataset.Fields
	Label   int
	Payload dataset.Payload
}

// AsMap renders the view as a plain tree for serialization.
func (v RecordView) AsMap() map[string]any {
	out := map[string]any{
		"index":  v.Index,
		"label":  v.Label,
		"fields": map[string]any(v.Fields),
	}

	p := map[string]any{"kind": v.Payload.Kind.String()}
	switch v.Payload.Kind {
	case dataset.PayloadSignal:
		sig := v.Payload.Signal
		p["shape"] = sig.Shape()
		p["fs"] = sig.Fs
		p["channels"] = sig.Channels
		p["units"] = sig.Units
		n := min(sig.Len(), PreviewSamples)
		p["samples"] = sig.Samples[:n]
		p["truncated"] = n < sig.Len()
	case dataset.PayloadImage:
		p["shape"] = v.Payload.Image.Shape()
		p["data"] = v.Payload.Image
	}
	out["payload"] = p
	return out
}
