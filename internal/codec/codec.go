// Package codec parses the sensor board's line protocol: one record per line,
// four comma-separated decimals in the order ir, bpm, avgBpm, gsr.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mindtv/internal/models"
)

const (
	// FieldCount is the number of fields in every record.
	FieldCount = 4
	// Separator splits the fields of a record.
	Separator = ","
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrNumericFormat   = errors.New("numeric format")
)

// Parse validates one raw line and returns the sample it carries.
func Parse(line string) (models.Sample, error) {
	fields := strings.Split(line, Separator)
	if len(fields) != FieldCount {
		return models.Sample{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRecord, FieldCount, len(fields))
	}

	var vals [FieldCount]float64
	for i, f := range fields {
		v, err := ParseValue(f)
		if err != nil {
			return models.Sample{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return models.Sample{
		IR:     vals[0],
		BPM:    vals[1],
		AvgBPM: vals[2],
		GSR:    vals[3],
	}, nil
}

// Format renders a sample in wire order. Parse(Format(s)) == s for every finite sample.
func Format(s models.Sample) string {
	return strings.Join([]string{
		formatFloat(s.IR),
		formatFloat(s.BPM),
		formatFloat(s.AvgBPM),
		formatFloat(s.GSR),
	}, Separator)
}

// ParseValue parses one sample field. Surrounding blanks are ignored; NaN and
// infinities are rejected with ErrNumericFormat.
func ParseValue(f string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNumericFormat, f)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
