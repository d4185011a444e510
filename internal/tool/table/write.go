package table

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
)

// Column names written by write_to_csv.
const (
	QueryColumn  = "query"
	AnswerColumn = "answer"
)

type writeArgs struct {
	FilePath string `json:"file_path" validate:"required"`
	Query    string `json:"query"`
	Answer   string `json:"answer"`
}

func writeHandler(ctx context.Context, args map[string]any) (tool.Result, error) {
	var a writeArgs
	if err := tool.Bind(args, &a); err != nil {
		return tool.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return tool.Result{}, err
	}

	total, created, err := AppendPair(a.FilePath, a.Query, a.Answer)
	if err != nil {
		return tool.Result{}, fmt.Errorf("error writing data: %w", err)
	}
	msg := fmt.Sprintf("appended 1 row to %s", a.FilePath)
	if created {
		msg = fmt.Sprintf("created new file %s with 1 row", a.FilePath)
	}
	return tool.Success(map[string]any{
		"total_rows": total,
		"file_path":  a.FilePath,
	}).WithMessage(msg), nil
}

// AppendPair appends a query/answer row to the CSV file at path, creating it
// with a query,answer header when it does not exist. An existing file keeps
// its other columns; missing query or answer columns are added. It returns
// the resulting number of data rows and whether the file was created.
func AppendPair(path, query, answer string) (total int, created bool, err error) {
	var fr *Frame
	switch _, statErr := os.Stat(path); {
	case statErr == nil:
		if fr, err = Load(path); err != nil {
			return 0, false, err
		}
	case errors.Is(statErr, fs.ErrNotExist):
		fr = NewFrame([]string{QueryColumn, AnswerColumn}, nil)
		created = true
	default:
		return 0, false, statErr
	}

	qi, ai := fr.ensureColumn(QueryColumn), fr.ensureColumn(AnswerColumn)
	row := make([]string, len(fr.Columns))
	row[qi], row[ai] = query, answer
	fr.Rows = append(fr.Rows, row)

	if err := fr.Save(path); err != nil {
		return 0, false, err
	}
	return fr.Len(), created, nil
}

// ensureColumn returns the position of name, appending an empty column when
// it is absent.
func (f *Frame) ensureColumn(name string) int {
	if i := f.Index(name); i >= 0 {
		return i
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], "")
	}
	f.dtypes = append(f.dtypes, DTypeFloat)
	return len(f.Columns) - 1
}
