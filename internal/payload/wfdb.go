package payload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotWaveform is returned when a reference has no WFDB header.
var ErrNotWaveform = errors.New("not a waveform record")

// defaultGain is the ADC gain assumed when a header leaves it zero or unset.
const defaultGain = 200

// WFDBReader reads PhysioNet WFDB records: a text header (<record>.hea)
// describing one or more binary signal files. Formats 16, 212 and 80 are
// supported.
type WFDBReader struct {
	Root string
}

// NewWFDBReader returns a reader resolving record names against root.
func NewWFDBReader(root string) *WFDBReader {
	return &WFDBReader{Root: root}
}

type wfdbHeader struct {
	name     string
	fs       float64
	nSamples int
	signals  []wfdbSignal
}

type wfdbSignal struct {
	file     string
	format   int
	gain     float64
	baseline int
	units    string
	desc     string
}

// Read decodes record id. The id may carry a .hea or .dat extension.
func (r *WFDBReader) Read(id string) (*Signal, error) {
	base := strings.TrimSpace(id)
	if ext := filepath.Ext(base); ext == ".hea" || ext == ".dat" {
		base = strings.TrimSuffix(base, ext)
	}
	path, err := resolve(r.Root, base)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path + ".hea")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotWaveform, id)
		}
		return nil, err
	}
	hdr, err := parseHeader(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("parse header %s: %w", id, err)
	}

	sig := &Signal{
		Fs:       hdr.fs,
		Channels: make([]string, len(hdr.signals)),
		Units:    make([]string, len(hdr.signals)),
	}
	for i, s := range hdr.signals {
		sig.Channels[i] = s.desc
		sig.Units[i] = s.units
	}

	// Signals stored in the same file are interleaved frame by frame.
	var files []string
	groups := map[string][]int{}
	for i, s := range hdr.signals {
		if _, ok := groups[s.file]; !ok {
			files = append(files, s.file)
		}
		groups[s.file] = append(groups[s.file], i)
	}

	columns := make([][]float64, len(hdr.signals))
	dir := filepath.Dir(base)
	for _, file := range files {
		idx := groups[file]
		format := hdr.signals[idx[0]].format
		for _, i := range idx[1:] {
			if hdr.signals[i].format != format {
				return nil, fmt.Errorf("record %s: mixed formats in %s", id, file)
			}
		}

		// Signal file names come from the header and get the same root check.
		sigPath, err := resolve(r.Root, filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		data, err := os.ReadFile(sigPath)
		if err != nil {
			return nil, fmt.Errorf("read signal file %s: %w", file, err)
		}
		raw, invalid, err := decodeSamples(data, format)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}

		width := len(idx)
		frames := len(raw) / width
		if hdr.nSamples > 0 && hdr.nSamples < frames {
			frames = hdr.nSamples
		}
		for k, i := range idx {
			s := hdr.signals[i]
			col := make([]float64, frames)
			for n := 0; n < frames; n++ {
				d := raw[n*width+k]
				if d == invalid {
					col[n] = math.NaN()
					continue
				}
				col[n] = float64(d-s.baseline) / s.gain
			}
			columns[i] = col
		}
	}

	n := 0
	for i, c := range columns {
		if i == 0 || len(c) < n {
			n = len(c)
		}
	}
	sig.Samples = make([][]float64, n)
	for t := 0; t < n; t++ {
		row := make([]float64, len(columns))
		for ch := range columns {
			row[ch] = columns[ch][t]
		}
		sig.Samples[t] = row
	}
	return sig, nil
}

// parseHeader reads the record line and one line per signal.
func parseHeader(r io.Reader) (*wfdbHeader, error) {
	sc := bufio.NewScanner(r)
	var lines [][]string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("empty header")
	}

	rec := lines[0]
	if len(rec) < 2 {
		return nil, errors.New("record line needs a name and signal count")
	}
	if strings.Contains(rec[0], "/") {
		return nil, errors.New("multi-segment records are not supported")
	}
	nsig, err := strconv.Atoi(rec[1])
	if err != nil || nsig <= 0 {
		return nil, fmt.Errorf("invalid signal count %q", rec[1])
	}

	hdr := &wfdbHeader{name: rec[0], fs: 250}
	if len(rec) > 2 {
		// "500", "500/1000" (counter frequency) or "500(0)" (base counter)
		fs := leading(rec[2], "/(")
		if hdr.fs, err = strconv.ParseFloat(fs, 64); err != nil {
			return nil, fmt.Errorf("invalid sampling frequency %q", rec[2])
		}
	}
	if len(rec) > 3 {
		if hdr.nSamples, err = strconv.Atoi(rec[3]); err != nil {
			return nil, fmt.Errorf("invalid sample count %q", rec[3])
		}
	}

	if len(lines)-1 < nsig {
		return nil, fmt.Errorf("header declares %d signals but describes %d", nsig, len(lines)-1)
	}
	for i := 0; i < nsig; i++ {
		s, err := parseSignalLine(lines[1+i])
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		hdr.signals = append(hdr.signals, s)
	}
	return hdr, nil
}

// parseSignalLine reads "file format gain(baseline)/units adcres adczero initval checksum blocksize desc".
func parseSignalLine(f []string) (wfdbSignal, error) {
	if len(f) < 2 {
		return wfdbSignal{}, errors.New("signal line needs a file name and format")
	}
	s := wfdbSignal{file: f[0], gain: defaultGain}

	// Format may carry "x<samples per frame>", ":<skew>" or "+<offset>" suffixes.
	format, err := strconv.Atoi(leading(f[1], "x:+"))
	if err != nil {
		return s, fmt.Errorf("invalid format %q", f[1])
	}
	s.format = format

	baselineSet := false
	if len(f) > 2 {
		g := f[2]
		if i := strings.Index(g, "/"); i >= 0 {
			s.units = g[i+1:]
			g = g[:i]
		}
		if i := strings.Index(g, "("); i >= 0 {
			b, err := strconv.Atoi(strings.TrimSuffix(g[i+1:], ")"))
			if err != nil {
				return s, fmt.Errorf("invalid baseline in %q", f[2])
			}
			s.baseline = b
			baselineSet = true
			g = g[:i]
		}
		gain, err := strconv.ParseFloat(g, 64)
		if err != nil {
			return s, fmt.Errorf("invalid gain %q", f[2])
		}
		if gain != 0 {
			s.gain = gain
		}
	}
	// Baseline defaults to the ADC zero.
	if !baselineSet && len(f) > 4 {
		if z, err := strconv.Atoi(f[4]); err == nil {
			s.baseline = z
		}
	}
	if len(f) > 8 {
		s.desc = strings.Join(f[8:], " ")
	}
	if s.units == "" {
		s.units = "mV"
	}
	return s, nil
}

// decodeSamples unpacks a signal file into digital values and reports the
// format's invalid-sample marker.
func decodeSamples(data []byte, format int) ([]int, int, error) {
	switch format {
	case 16:
		out := make([]int, len(data)/2)
		for i := range out {
			out[i] = int(int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8))
		}
		return out, -32768, nil

	case 212:
		out := make([]int, 0, len(data)/3*2+1)
		for i := 0; i+1 < len(data); i += 3 {
			out = append(out, signExtend12(int(data[i])|int(data[i+1]&0x0F)<<8))
			if i+2 < len(data) {
				out = append(out, signExtend12(int(data[i+2])|int(data[i+1]&0xF0)<<4))
			}
		}
		return out, -2048, nil

	case 80:
		out := make([]int, len(data))
		for i, b := range data {
			out[i] = int(b) - 128
		}
		return out, -128, nil
	}
	return nil, 0, fmt.Errorf("unsupported signal format %d", format)
}

// leading returns s up to the first byte found in seps.
func leading(s, seps string) string {
	if i := strings.IndexAny(s, seps); i >= 0 {
		return s[:i]
	}
	return s
}

func signExtend12(v int) int {
	if v&0x800 != 0 {
		return v - 0x1000
	}
	return v
}
