// Package export writes sample batches as CSV files usable as training data and
// reads them back.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mindtv/internal/codec"
	"mindtv/internal/models"
)

// Layout selects the header written for the four sample columns.
type Layout int

const (
	// LayoutDevice uses the feature names the classifier was trained with.
	LayoutDevice Layout = iota
	// LayoutLegacy uses the sketch's variable names from the first collections.
	LayoutLegacy
)

const ContentColumn = "Content"

var (
	deviceHeader = []string{"IR", "BPM", "Avg_BPM", "GSR"}
	legacyHeader = []string{"irValue", "beatsPerMinute", "beatAvg", "GSR"}
)

var ErrBadHeader = errors.New("unrecognized csv header")

// ParseLayout maps "device" or "legacy" to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "device":
		return LayoutDevice, nil
	case "legacy":
		return LayoutLegacy, nil
	}
	return 0, fmt.Errorf("unknown csv layout %q", s)
}

func (l Layout) header() []string {
	if l == LayoutLegacy {
		return legacyHeader
	}
	return deviceHeader
}

// WriteCSV writes a header and one row per sample. When content is non-empty a
// Content column carrying it is appended to every row.
func WriteCSV(w io.Writer, samples []models.Sample, layout Layout, content string) error {
	cw := csv.NewWriter(w)

	header := append([]string(nil), layout.header()...)
	if content != "" {
		header = append(header, ContentColumn)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, s := range samples {
		row[0] = formatFloat(s.IR)
		row[1] = formatFloat(s.BPM)
		row[2] = formatFloat(s.AvgBPM)
		row[3] = formatFloat(s.GSR)
		if content != "" {
			row[4] = content
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a file written in either layout. It returns the samples and
// the content label of the first row, if the file has a Content column.
func ReadCSV(r io.Reader) ([]models.Sample, string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, "", fmt.Errorf("read header: %w", err)
	}
	idx, contentIdx, err := columns(header)
	if err != nil {
		return nil, "", err
	}

	var (
		samples []models.Sample
		content string
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("line %d: %w", line, err)
		}

		var v [4]float64
		for i, col := range idx {
			if col >= len(rec) {
				return nil, "", fmt.Errorf("line %d: missing column %s", line, header[col])
			}
			f, err := codec.ParseValue(rec[col])
			if err != nil {
				return nil, "", fmt.Errorf("line %d: %s: %w", line, header[col], err)
			}
			v[i] = f
		}
		samples = append(samples, models.Sample{IR: v[0], BPM: v[1], AvgBPM: v[2], GSR: v[3]})

		if contentIdx >= 0 && content == "" && contentIdx < len(rec) {
			content = rec[contentIdx]
		}
	}
	return samples, content, nil
}

// columns locates the four sample columns by name in either layout.
func columns(header []string) ([4]int, int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var idx [4]int
	for _, names := range [][]string{deviceHeader, legacyHeader} {
		ok := true
		for i, name := range names {
			p, found := pos[name]
			if !found {
				ok = false
				break
			}
			idx[i] = p
		}
		if ok {
			contentIdx := -1
			if p, found := pos[ContentColumn]; found {
				contentIdx = p
			}
			return idx, contentIdx, nil
		}
	}
	return idx, -1, fmt.Errorf("%w: %s", ErrBadHeader, strings.Join(header, ","))
}

// UniquePath returns dir/base+ext, or dir/base(n)+ext with the smallest n >= 1
// that does not exist yet.
func UniquePath(dir, base, ext string) (string, error) {
	candidate := filepath.Join(dir, base+ext)
	for n := 1; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, n, ext))
	}
}

// WriteFile exports samples to a fresh file under dir and returns its path.
func WriteFile(dir, base string, samples []models.Sample, layout Layout, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path, err := UniquePath(dir, base, ".csv")
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, samples, layout, content); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
