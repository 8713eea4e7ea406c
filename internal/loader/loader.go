// Package loader reads Flux documents from disk.
//
// Documents may be written as JSON, YAML or CUE. Every format is lowered to
// JSON and decoded by ast.Decode, so there is a single decoding path.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/cbassuarez/flux/internal/ast"
)

// Error codes for LoadError.
const (
	ErrCodeReadFailed        = "READ_FAILED"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// LoadError is a tagged collaborator failure. Line and Column are zero
// when the source format does not report positions.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Line    int
	Column  int
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Path, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

// IsLoadError reports whether err is a LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// Load reads and decodes the document at path.
func Load(path string) (*ast.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse decodes document bytes. The format is chosen by the extension of
// name: .json, .yaml, .yml or .cue.
func Parse(name string, data []byte) (*ast.Document, error) {
	var (
		jsonData []byte
		err      error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		jsonData = data
	case ".yaml", ".yml":
		jsonData, err = yamlToJSON(data)
	case ".cue":
		jsonData, err = cueToJSON(name, data)
	default:
		return nil, &LoadError{
			Code:    ErrCodeUnsupportedFormat,
			Path:    name,
			Message: fmt.Sprintf("unsupported document format %q", filepath.Ext(name)),
		}
	}
	if err != nil {
		return nil, withPath(err, name)
	}

	doc, err := ast.Decode(jsonData)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: err.Error()}
	}
	return doc, nil
}

func withPath(err error, name string) error {
	var le *LoadError
	if errors.As(err, &le) {
		le.Path = name
		return le
	}
	return &LoadError{Code: ErrCodeParseFailed, Path: name, Message: err.Error()}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("converting YAML: %v", err)}
	}
	return out, nil
}

func cueToJSON(name string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(err)
	}
	return out, nil
}

// cueLoadError keeps the first reported CUE position.
func cueLoadError(err error) *LoadError {
	le := &LoadError{Code: ErrCodeParseFailed, Message: err.Error()}
	for _, e := range cueerrors.Errors(err) {
		if pos := e.Position(); pos.IsValid() {
			le.Line = pos.Line()
			le.Column = pos.Column()
			break
		}
	}
	return le
}
