package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mindtv/internal/codec"
	"mindtv/internal/models"
)

var samples = []models.Sample{
	{IR: 51234, BPM: 72.5, AvgBPM: 71, GSR: 402},
	{IR: 51301, BPM: 73.25, AvgBPM: 71, GSR: 398},
}

func TestWriteCSV_Layouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		layout  Layout
		content string
		want    string
	}{
		{"device", LayoutDevice, "", "IR,BPM,Avg_BPM,GSR\n51234,72.5,71,402\n51301,73.25,71,398\n"},
		{"legacy", LayoutLegacy, "", "irValue,beatsPerMinute,beatAvg,GSR\n51234,72.5,71,402\n51301,73.25,71,398\n"},
		{"with content", LayoutLegacy, "Jornal", "irValue,beatsPerMinute,beatAvg,GSR,Content\n51234,72.5,71,402,Jornal\n51301,73.25,71,398,Jornal\n"},
		{"quoted content", LayoutDevice, "Ação, drama", "IR,BPM,Avg_BPM,GSR,Content\n51234,72.5,71,402,\"Ação, drama\"\n51301,73.25,71,398,\"Ação, drama\"\n"},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, samples, tc.layout, tc.content); err != nil {
			t.Fatalf("%s: WriteCSV: %v", tc.name, err)
		}
		if buf.String() != tc.want {
			t.Fatalf("%s:\ngot  %q\nwant %q", tc.name, buf.String(), tc.want)
		}
	}
}

func TestReadCSV_BothLayouts(t *testing.T) {
	t.Parallel()

	for _, layout := range []Layout{LayoutDevice, LayoutLegacy} {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, samples, layout, "Filme de Comédia"); err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
		got, content, err := ReadCSV(&buf)
		if err != nil {
			t.Fatalf("ReadCSV: %v", err)
		}
		if content != "Filme de Comédia" {
			t.Fatalf("content = %q", content)
		}
		if len(got) != len(samples) || got[0] != samples[0] || got[1] != samples[1] {
			t.Fatalf("samples = %+v", got)
		}
	}
}

func TestReadCSV_ReorderedColumns(t *testing.T) {
	t.Parallel()

	in := "GSR,IR,Avg_BPM,BPM\n400,50000,70,71\n"
	got, content, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := models.Sample{IR: 50000, BPM: 71, AvgBPM: 70, GSR: 400}
	if len(got) != 1 || got[0] != want || content != "" {
		t.Fatalf("got %+v %q", got, content)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"bad header", "a,b,c,d\n1,2,3,4\n"},
		{"not a number", "IR,BPM,Avg_BPM,GSR\n1,x,3,4\n"},
		{"short row", "IR,BPM,Avg_BPM,GSR\n1,2,3\n"},
	}
	for _, tc := range tests {
		if _, _, err := ReadCSV(strings.NewReader(tc.in)); err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
	if _, _, err := ReadCSV(strings.NewReader("a,b\n")); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("err = %v; want ErrBadHeader", err)
	}
}

func TestReadCSV_RejectsNonFinite(t *testing.T) {
	t.Parallel()

	for _, row := range []string{"NaN,70,71,400", "1,Inf,71,400", "1,70,-Inf,400", "1,70,71,+Inf"} {
		got, _, err := ReadCSV(strings.NewReader("IR,BPM,Avg_BPM,GSR\n" + row + "\n"))
		if !errors.Is(err, codec.ErrNumericFormat) {
			t.Fatalf("row %q: err = %v; want ErrNumericFormat", row, err)
		}
		if got != nil {
			t.Fatalf("row %q: samples returned with error: %+v", row, got)
		}
	}
}

func TestUniquePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := []string{"coleta_dados.csv", "coleta_dados(1).csv", "coleta_dados(2).csv"}
	for _, name := range want {
		p, err := UniquePath(dir, "coleta_dados", ".csv")
		if err != nil {
			t.Fatalf("UniquePath: %v", err)
		}
		if filepath.Base(p) != name {
			t.Fatalf("UniquePath = %s; want %s", filepath.Base(p), name)
		}
		if err := os.WriteFile(p, nil, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "exports")
	first, err := WriteFile(dir, "coleta_dados", samples, LayoutDevice, "Jornal")
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	second, err := WriteFile(dir, "coleta_dados", samples, LayoutDevice, "Jornal")
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if first == second {
		t.Fatalf("second export overwrote %s", first)
	}

	f, err := os.Open(second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	got, content, err := ReadCSV(f)
	if err != nil || len(got) != 2 || content != "Jornal" {
		t.Fatalf("read back %d samples, %q, %v", len(got), content, err)
	}
}

func TestParseLayout(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Layout{"": LayoutDevice, "device": LayoutDevice, "LEGACY": LayoutLegacy} {
		got, err := ParseLayout(in)
		if err != nil || got != want {
			t.Fatalf("ParseLayout(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLayout("xml"); err == nil {
		t.Fatalf("ParseLayout accepted xml")
	}
}
