package table

import (
	"context"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
)

// sampleRows is how many leading records read_csv_info returns.
const sampleRows = 3

type inspectArgs struct {
	FilePath string `json:"file_path" validate:"required"`
}

func inspectHandler(ctx context.Context, args map[string]any) (tool.Result, error) {
	var a inspectArgs
	if err := tool.Bind(args, &a); err != nil {
		return tool.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return tool.Result{}, err
	}

	fr, err := Load(a.FilePath)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(Describe(fr)), nil
}

// Describe summarizes the shape and types of fr.
func Describe(fr *Frame) map[string]any {
	return map[string]any{
		"rows":         fr.Len(),
		"columns":      len(fr.Columns),
		"column_names": append([]string(nil), fr.Columns...),
		"data_types":   fr.DTypes(),
		"sample_data":  fr.Records(fr.Head(sampleRows)),
	}
}
