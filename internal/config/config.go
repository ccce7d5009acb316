// Package config decodes the declarative files the tool reads: log formats,
// classifier definitions and harness scenarios.
//
// YAML (and JSON, a YAML subset) is decoded strictly: unknown fields are
// rejected so typos surface at load time. CUE files are compiled, checked to
// be concrete, exported to JSON and then decoded through the same strict
// path, so one set of `yaml` struct tags serves both formats.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Error is a decoding failure, with a source position when one is known.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions lists the file extensions DecodeFile understands.
var Extensions = []string{".yaml", ".yml", ".json", ".cue"}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DecodeFile reads path and decodes it into v, choosing the format by extension.
func DecodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeBytes(path, data, v)
}

// DecodeBytes decodes data into v. name selects the format by extension
// and is used in error messages.
func DecodeBytes(name string, data []byte, v any) error {
	if strings.EqualFold(filepath.Ext(name), ".cue") {
		exported, err := exportCUE(name, data)
		if err != nil {
			return err
		}
		data = exported
	}
	return decodeYAML(name, data, v)
}

// DecodeNode decodes an already parsed YAML node into v with unknown
// fields rejected.
func DecodeNode(node *yaml.Node, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(node); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	dec := yaml.NewDecoder(&buf)
	dec.KnownFields(true)
	return dec.Decode(v)
}

func decodeYAML(name string, data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &Error{Path: name, Message: "empty document"}
		}
		return &Error{Path: name, Message: "failed to parse", Err: err}
	}
	return nil
}

// exportCUE compiles a single CUE file and returns its JSON export.
func exportCUE(name string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, cueError(name, err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(name, err)
	}
	out, err := value.MarshalJSON()
	if err != nil {
		return nil, cueError(name, err)
	}
	return out, nil
}

// cueError keeps the position of the first CUE error.
func cueError(name string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: name, Message: "invalid CUE", Err: err}
	}
	first := errs[0]
	e := &Error{Path: name, Message: first.Error(), Err: err}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
