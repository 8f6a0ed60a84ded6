// Package payload decodes the heterogeneous artifact a dataset row may point
// at: a physiological waveform record or an image file.
package payload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a payload reference escapes the data root.
var ErrOutsideRoot = errors.New("path escapes data root")

// Signal is a decoded multi-channel waveform.
type Signal struct {
	// Samples is indexed [sample][channel] in physical units.
	// Invalid samples are NaN.
	Samples [][]float64

	// Fs is the sampling frequency in Hz.
	Fs float64

	Channels []string
	Units    []string
}

// Len returns the number of samples per channel.
func (s *Signal) Len() int { return len(s.Samples) }

// NumChannels returns the number of channels.
func (s *Signal) NumChannels() int { return len(s.Channels) }

// Shape returns (samples, channels).
func (s *Signal) Shape() []int { return []int{len(s.Samples), len(s.Channels)} }

// ToNested returns the samples as nested slices.
func (s *Signal) ToNested() any { return s.Samples }

// Tensor is a channel-first float32 image, laid out [c][y][x] in Data.
type Tensor struct {
	Channels, Height, Width int
	Data                    []float32
}

// NewTensor allocates a zeroed tensor.
func NewTensor(c, h, w int) *Tensor {
	return &Tensor{Channels: c, Height: h, Width: w, Data: make([]float32, c*h*w)}
}

// At returns the value at channel c, row y, column x.
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// Set stores v at channel c, row y, column x.
func (t *Tensor) Set(c, y, x int, v float32) {
	t.Data[(c*t.Height+y)*t.Width+x] = v
}

// Shape returns (channels, height, width).
func (t *Tensor) Shape() []int { return []int{t.Channels, t.Height, t.Width} }

// ToNested returns the tensor as [channel][row][column] slices.
func (t *Tensor) ToNested() any {
	out := make([][][]float32, t.Channels)
	for c := range out {
		out[c] = make([][]float32, t.Height)
		for y := range out[c] {
			start := (c*t.Height + y) * t.Width
			out[c][y] = t.Data[start : start+t.Width]
		}
	}
	return out
}

// WaveformReader reads a waveform record by identifier.
type WaveformReader interface {
	Read(id string) (*Signal, error)
}

// ImageReader reads an image file into a channel-first tensor.
type ImageReader interface {
	Read(path string) (*Tensor, error)
}

// resolve joins ref onto root and rejects results outside root.
// An empty root leaves ref relative to the working directory.
func resolve(root, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty payload reference")
	}
	if root == "" {
		return filepath.Clean(ref), nil
	}
	p := filepath.Join(root, ref)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}
	return p, nil
}
