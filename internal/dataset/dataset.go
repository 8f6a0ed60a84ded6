// Package dataset exposes tabular rows through a field mapping so metrics
// can address columns by semantic name ("age", "sex", "model_input")
// regardless of how a particular file spells them.
//
// A Dataset is an immutable, randomly indexable view: Get(i) projects row i
// through the mapping and lazily decodes the row's payload, if the mapping
// declares one.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/JonMunkholm/dataquality/internal/logging"
	"github.com/JonMunkholm/dataquality/internal/payload"
	"github.com/JonMunkholm/dataquality/internal/tabular"
)

// PayloadField is the semantic name whose column references a record payload.
const PayloadField = "model_input"

// IndexColumn is the row-number column added by Metadata.
const IndexColumn = "idx"

var (
	// ErrIndex is returned by Get for an index outside [0, Len()).
	ErrIndex = errors.New("index out of range")

	// ErrPayloadDecode is returned when neither decoder can read a payload.
	ErrPayloadDecode = errors.New("payload decode failed")

	// ErrUnknownField is returned for a semantic name the mapping does not declare.
	ErrUnknownField = errors.New("field not mapped")

	// ErrReservedColumn is returned when a mapping uses the idx column name.
	ErrReservedColumn = errors.New("reserved column name")
)

// FieldMapping associates semantic field names with source column names.
type FieldMapping map[string]string

// Resolve returns the row's value for a semantic field. The boolean is false
// when the field is not mapped or the mapped column is absent from the row.
func (m FieldMapping) Resolve(row tabular.Row, semantic string) (any, bool) {
	col, ok := m[semantic]
	if !ok {
		return nil, false
	}
	v, ok := row[col]
	return v, ok
}

// Keys returns the semantic names in sorted order.
func (m FieldMapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (m FieldMapping) Clone() FieldMapping {
	c := make(FieldMapping, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Fields is a row projected through a FieldMapping. A nil value means the
// cell is null or the column is missing.
type Fields map[string]any

// PayloadKind tells which variant a Payload holds.
type PayloadKind int

const (
	PayloadAbsent PayloadKind = iota
	PayloadSignal
	PayloadImage
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadSignal:
		return "signal"
	case PayloadImage:
		return "image"
	default:
		return "absent"
	}
}

// Payload is the decoded artifact of a row.
type Payload struct {
	Kind   PayloadKind
	Signal *payload.Signal
	Image  *payload.Tensor
}

// Record is the per-index view of a dataset.
type Record struct {
	Payload Payload

	// Label is reserved for supervised use and is always 0.
	Label int

	Fields Fields
}

// PayloadDecodeError reports that a row's payload reference could be read
// neither as a waveform nor as an image.
type PayloadDecodeError struct {
	Index       int
	Source      string
	WaveformErr error
	ImageErr    error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("decode payload %q at index %d: waveform: %v; image: %v",
		e.Source, e.Index, e.WaveformErr, e.ImageErr)
}

// Unwrap exposes the sentinel and the image error, the final decode attempt.
func (e *PayloadDecodeError) Unwrap() []error {
	return []error{ErrPayloadDecode, e.ImageErr}
}

// Dataset is an immutable view over one table and one FieldMapping.
type Dataset struct {
	name     string
	frame    *tabular.Frame
	mapping  FieldMapping
	waveform payload.WaveformReader
	image    payload.ImageReader
	logger   *slog.Logger
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithWaveformReader sets the waveform decoder.
func WithWaveformReader(r payload.WaveformReader) Option {
	return func(d *Dataset) { d.waveform = r }
}

// WithImageReader sets the image decoder.
func WithImageReader(r payload.ImageReader) Option {
	return func(d *Dataset) { d.image = r }
}

// WithDataRoot sets both decoders to read files under root.
func WithDataRoot(root string) Option {
	return func(d *Dataset) {
		d.waveform = payload.NewWFDBReader(root)
		d.image = payload.NewImageReader(root)
	}
}

// New builds a dataset. The frame and mapping are copied, so later changes
// by the caller are not observed.
func New(name string, frame *tabular.Frame, mapping FieldMapping, opts ...Option) *Dataset {
	if frame == nil {
		frame = tabular.NewFrame(nil, nil)
	}
	d := &Dataset{
		name:     name,
		frame:    frame.Clone(),
		mapping:  mapping.Clone(),
		waveform: payload.NewWFDBReader(""),
		image:    payload.NewImageReader(""),
		logger:   logging.New("dataset"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Len returns the row count fixed at construction.
func (d *Dataset) Len() int { return d.frame.Len() }

// Mapping returns a copy of the field mapping.
func (d *Dataset) Mapping() FieldMapping { return d.mapping.Clone() }

// HasField reports whether semantic is mapped.
func (d *Dataset) HasField(semantic string) bool {
	_, ok := d.mapping[semantic]
	return ok
}

// HasColumn reports whether name is a raw column of the underlying table.
func (d *Dataset) HasColumn(name string) bool {
	return d.frame.HasColumn(name)
}

// Fields returns row i projected through the mapping without decoding its payload.
func (d *Dataset) Fields(i int) (Fields, error) {
	if i < 0 || i >= d.Len() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndex, i, d.Len())
	}
	return d.project(d.frame.Rows[i]), nil
}

func (d *Dataset) project(row tabular.Row) Fields {
	out := make(Fields, len(d.mapping))
	for k := range d.mapping {
		v, _ := d.mapping.Resolve(row, k)
		if tabular.IsNull(v) {
			v = nil
		}
		out[k] = v
	}
	return out
}

// Get returns the record at index i, decoding its payload if the mapping
// declares one. Payload files are read on every call.
func (d *Dataset) Get(i int) (Record, error) {
	fields, err := d.Fields(i)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Label: 0, Fields: fields}

	if !d.HasField(PayloadField) {
		return rec, nil
	}

	src, ok := fields[PayloadField].(string)
	if !ok {
		if t, ok := tabular.Text(fields[PayloadField]); ok {
			src = t
		}
	}

	sig, werr := d.waveform.Read(src)
	if werr == nil {
		rec.Payload = Payload{Kind: PayloadSignal, Signal: sig}
		return rec, nil
	}

	img, ierr := d.image.Read(src)
	if ierr != nil {
		d.logger.Debug("payload decode failed",
			"dataset", d.name, "index", i, "source", src,
			"waveform_error", werr, "image_error", ierr)
		return Record{}, &PayloadDecodeError{Index: i, Source: src, WaveformErr: werr, ImageErr: ierr}
	}
	rec.Payload = Payload{Kind: PayloadImage, Image: img}
	return rec, nil
}

// Column returns one semantic field across every row.
func (d *Dataset) Column(semantic string) ([]any, error) {
	col, ok := d.mapping[semantic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, semantic)
	}
	out := make([]any, d.Len())
	for i, row := range d.frame.Rows {
		v := row[col]
		if tabular.IsNull(v) {
			v = nil
		}
		out[i] = v
	}
	return out, nil
}

// FieldFrame returns every row's raw columns overlaid with its projected
// fields. Semantic names win over raw column names on collision. Query
// predicates are evaluated against these rows.
func (d *Dataset) FieldFrame() []map[string]any {
	out := make([]map[string]any, d.Len())
	for i, row := range d.frame.Rows {
		env := make(map[string]any, len(row)+len(d.mapping))
		for k, v := range row {
			env[k] = v
		}
		for k, v := range d.project(row) {
			env[k] = v
		}
		out[i] = env
	}
	return out
}

// Subset returns a dataset over the rows whose mask entry is true. The name,
// mapping and decoders carry over; indices are renumbered from zero.
func (d *Dataset) Subset(mask []bool) *Dataset {
	return &Dataset{
		name:     d.name,
		frame:    d.frame.Select(mask).Clone(),
		mapping:  d.mapping.Clone(),
		waveform: d.waveform,
		image:    d.image,
		logger:   d.logger,
	}
}

// Frame returns a copy of the underlying table.
func (d *Dataset) Frame() *tabular.Frame {
	return d.frame.Clone()
}

// Metadata returns every row projected through the mapping with its row
// number under idx. Infinite values are reported as null.
func (d *Dataset) Metadata() ([]map[string]any, error) {
	if _, ok := d.mapping[IndexColumn]; ok {
		return nil, fmt.Errorf("%w: mapping declares %q", ErrReservedColumn, IndexColumn)
	}
	out := make([]map[string]any, d.Len())
	for i, row := range d.frame.Rows {
		m := map[string]any{IndexColumn: i}
		for k, v := range d.project(row) {
			if f, ok := v.(float64); ok && math.IsInf(f, 0) {
				v = nil
			}
			m[k] = v
		}
		out[i] = m
	}
	return out, nil
}
