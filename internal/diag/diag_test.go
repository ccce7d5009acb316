package diag

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsClassifierNotFound_Wrapped(t *testing.T) {
	err := fmt.Errorf("process pair: %w", NewClassifierNotFound("inject/matmul.json", []string{"coremark"}))

	assert.True(t, IsClassifierNotFound(err))
	assert.False(t, IsMalformedSpecification(err))
	assert.Contains(t, err.Error(), "CLASSIFIER_NOT_FOUND")
	assert.Contains(t, err.Error(), "inject/matmul.json")
}

func TestIsMalformedSpecification_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewMalformedSpecification("spec.json", cause)

	assert.True(t, IsMalformedSpecification(err))
	assert.ErrorIs(t, err, cause)
}

func TestIsHelpers_PlainError(t *testing.T) {
	assert.False(t, IsClassifierNotFound(errors.New("boom")))
	assert.False(t, IsMalformedSpecification(nil))
}

func TestList_CountAndHas(t *testing.T) {
	var l List
	l.Warn(CodeMissingTestEntry, "T42", "test %s not found in log", "T42")
	l.Warn(CodeFieldMissing, "T43", "missing output")
	l.Info(CodeMissingTestEntry, "T44", "again")

	assert.Equal(t, 2, l.Count(CodeMissingTestEntry))
	assert.True(t, l.Has(CodeFieldMissing))
	assert.False(t, l.Has(CodeConsistencyWarning))
	assert.Equal(t, "MISSING_TEST_ENTRY: test T42 not found in log (test=T42)", l[0].String())
}

func TestList_Extend(t *testing.T) {
	var a, b List
	a.Warn(CodeValidationMismatch, "", "size")
	b.Info(CodeDuplicateTestEntry, "x_1", "dup")

	a.Extend(b)
	assert.Len(t, a, 2)
	assert.Equal(t, CodeDuplicateTestEntry, a[1].Code)
}

func TestList_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var l List
	l.Warn(CodeConsistencyWarning, "", "category sum mismatch")
	l.Info(CodeMissingTestEntry, "T1", "synthesized")
	l.Log(logger)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "category sum mismatch")
	assert.Contains(t, out, "test=T1")
}
