package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrFileNotFound is wrapped by [Load] when the CSV file does not exist.
var ErrFileNotFound = errors.New("file not found")

// DType is the inferred type of a column, named the way pandas names it so
// the model sees familiar vocabulary.
type DType string

const (
	DTypeInt    DType = "int64"
	DTypeFloat  DType = "float64"
	DTypeBool   DType = "bool"
	DTypeObject DType = "object"
)

// Frame is an in-memory CSV table. Cells are kept as raw strings; an empty
// string is a missing value.
type Frame struct {
	Columns []string
	Rows    [][]string

	dtypes []DType
}

// Load reads the CSV file at path. The first record is the header. Short
// records are padded with missing values; records longer than the header
// are an error.
func Load(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	defer f.Close()

	frame, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	return frame, nil
}

// Parse reads a CSV table from r.
func Parse(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	fr := &Frame{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		fr.Rows = append(fr.Rows, rec)
	}
	fr.infer()
	return fr, nil
}

// NewFrame builds a frame from a header and rows, padding short rows.
func NewFrame(columns []string, rows [][]string) *Frame {
	fr := &Frame{Columns: slices.Clone(columns)}
	for _, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		fr.Rows = append(fr.Rows, row)
	}
	fr.infer()
	return fr
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column, or -1.
func (f *Frame) Index(column string) int {
	return slices.Index(f.Columns, column)
}

// Has reports whether column exists.
func (f *Frame) Has(column string) bool { return f.Index(column) >= 0 }

// DType returns the inferred type of the column at position i.
func (f *Frame) DType(i int) DType { return f.dtypes[i] }

// DTypes maps each column name to its inferred type.
func (f *Frame) DTypes() map[string]string {
	out := make(map[string]string, len(f.Columns))
	for i, c := range f.Columns {
		out[c] = string(f.dtypes[i])
	}
	return out
}

// Record returns row i with each cell converted according to its column's
// type. Missing values are nil.
func (f *Frame) Record(i int) map[string]any {
	row := f.Rows[i]
	rec := make(map[string]any, len(f.Columns))
	for j, c := range f.Columns {
		rec[c] = f.typed(j, row[j])
	}
	return rec
}

// Records converts the rows at the given positions.
func (f *Frame) Records(idx []int) []map[string]any {
	out := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		out = append(out, f.Record(i))
	}
	return out
}

// Head returns the positions of the first n rows.
func (f *Frame) Head(n int) []int {
	n = min(n, len(f.Rows))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// All returns the positions of every row.
func (f *Frame) All() []int { return f.Head(len(f.Rows)) }

func (f *Frame) typed(col int, cell string) any {
	if cell == "" {
		return nil
	}
	switch f.dtypes[col] {
	case DTypeInt:
		if v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err == nil {
			return v
		}
	case DTypeFloat:
		if v, ok := parseNumber(cell); ok {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil
			}
			return v
		}
	case DTypeBool:
		if v, ok := parseBool(cell); ok {
			return v
		}
	}
	return cell
}

func (f *Frame) infer() {
	f.dtypes = make([]DType, len(f.Columns))
	for j := range f.Columns {
		f.dtypes[j] = f.inferColumn(j)
	}
}

func (f *Frame) inferColumn(j int) DType {
	allInt, allFloat, allBool := true, true, true
	missing, present := false, 0
	for _, row := range f.Rows {
		cell := row[j]
		if cell == "" {
			missing = true
			continue
		}
		present++
		if allInt {
			if _, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseNumber(cell); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(cell); !ok {
				allBool = false
			}
		}
	}
	switch {
	case present == 0:
		// A column with no values at all reads as NaN throughout.
		return DTypeFloat
	case allInt && !missing:
		return DTypeInt
	case allInt || allFloat:
		return DTypeFloat
	case allBool && !missing:
		return DTypeBool
	default:
		return DTypeObject
	}
}

// parseNumber parses s as a float the way a CSV reader would: surrounding
// space is ignored, "nan" and "inf" spellings are accepted.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// Save writes the frame to path atomically: the table is written to a
// temporary file in the same directory which then replaces path.
func (f *Frame) Save(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tableagent-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(f.Columns); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err = w.WriteAll(f.Rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
