package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/ast"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "doc.json", `{"meta":{"title":"J"},"grids":[{"name":"g","topology":"linear","cells":[{"id":"a"}]}]}`)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "J", doc.Meta.Title)
	require.Len(t, doc.Grids, 1)
	assert.Equal(t, "linear", doc.Grids[0].Topology)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "doc.yaml", `
meta:
  title: Y
state:
  params:
    - name: speed
      init: 1.5
rules:
  - name: bump
    grid: g
    then:
      - kind: set
        target: param.speed
        value: {kind: binary, op: "+", left: {kind: ref, path: param.speed}, right: 1}
`)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Y", doc.Meta.Title)
	assert.Equal(t, ast.Number(1.5), doc.State.Params[0].Init)
	require.Len(t, doc.Rules, 1)
	require.Len(t, doc.Rules[0].Then, 1)
	_, ok := doc.Rules[0].Then[0].(ast.Set)
	assert.True(t, ok)
}

func TestLoadCUE(t *testing.T) {
	path := writeFile(t, "doc.cue", `
meta: title: "C"
grids: [{name: "g", topology: "grid", size: {rows: 1, cols: 2}, cells: [{id: "a"}, {id: "b"}]}]
`)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "C", doc.Meta.Title)
	assert.Equal(t, &ast.Size{Rows: 1, Cols: 2}, doc.Grids[0].Size)
}

func TestLoadCUEIncomplete(t *testing.T) {
	path := writeFile(t, "doc.cue", `meta: title: string`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeParseFailed))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeReadFailed))

	_, err = Load(writeFile(t, "doc.toml", `title = "x"`))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeUnsupportedFormat))

	_, err = Load(writeFile(t, "doc.json", `{"body":[{"kind":"table"}]}`))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeParseFailed))
	assert.Contains(t, err.Error(), "doc.json")

	_, err = Load(writeFile(t, "doc.yaml", "meta: [unclosed"))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeParseFailed))
}
