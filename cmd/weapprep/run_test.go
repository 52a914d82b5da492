package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hydro:
  - file: Hydro/Gauges.xlsx
    stations: [Bheri]
    start: 2020-01-01
    end: 2020-12-31
`), 0o600))
	t.Setenv("INPUT_DIR", dir)

	var out bytes.Buffer
	require.NoError(t, validateJob(&out, path))
	assert.Contains(t, out.String(), "OK (1 hydro, 0 meteo")
}

func TestValidateJob_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("meteo:\n  - file: c.xlsx\n"), 0o600))

	var out bytes.Buffer
	err := validateJob(&out, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meteo[0].stations")
	assert.Empty(t, out.String())
}
