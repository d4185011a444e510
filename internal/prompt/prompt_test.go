package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_NotEmpty(t *testing.T) {
	assert.Contains(t, Default(), "CSV_PATH")
	assert.Contains(t, Default(), "task_done")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(custom, []byte("  Be brief.\n"), 0o644))
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o644))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "no path", path: "", want: Default()},
		{name: "missing file", path: filepath.Join(dir, "nope.txt"), want: Default()},
		{name: "custom file", path: custom, want: "Be brief."},
		{name: "empty file", path: empty, wantErr: true},
		{name: "directory", path: dir, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
