package logparse

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/diag"
)

type named struct {
	classifier.Example
	name string
}

func (n named) Name() string { return n.name }

func testRegistry(t *testing.T, names ...string) *classifier.Registry {
	t.Helper()
	r := classifier.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, name := range names {
		require.NoError(t, r.Register(named{name: name}))
	}
	return r
}

func newTestTokenizer(t *testing.T, reg *classifier.Registry) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer(DefaultFormat(), reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return tok
}

func TestTokenize_Basic(t *testing.T) {
	reg := testRegistry(t, "matmul")
	initial, _ := reg.Lookup("matmul")
	log := "boot banner\n" +
		"Starting test inject/matmul/matmul_1 -n 4\n" +
		"  SUCCESS  \n" +
		"\n" +
		"Starting test inject/matmul/matmul_2\n" +
		"line one\n" +
		"line two\n"

	blocks, diags := newTestTokenizer(t, reg).Tokenize(log, initial)
	assert.Empty(t, diags)
	require.Equal(t, []string{"matmul_1", "matmul_2"}, blocks.Names())

	b1, _ := blocks.Get("matmul_1")
	assert.Equal(t, "1", b1.TestNumber)
	assert.Equal(t, "-n 4", b1.Args)
	assert.Equal(t, "SUCCESS", b1.Output)
	assert.Equal(t, "matmul", b1.Benchmark)

	b2, _ := blocks.Get("matmul_2")
	assert.Equal(t, "", b2.Args)
	assert.Equal(t, "line one\nline two", b2.Output)
}

func TestTokenize_NoMarkers(t *testing.T) {
	reg := testRegistry(t, "matmul")
	initial, _ := reg.Lookup("matmul")

	blocks, diags := newTestTokenizer(t, reg).Tokenize("just noise\nno tests here\n", initial)
	assert.Equal(t, 0, blocks.Len())
	assert.Empty(t, diags)
}

func TestTokenize_MarkerAtStart(t *testing.T) {
	reg := testRegistry(t, "matmul")
	initial, _ := reg.Lookup("matmul")

	blocks, _ := newTestTokenizer(t, reg).Tokenize("Starting test inject/matmul/matmul_7\nSUCCESS\n", initial)
	assert.Equal(t, []string{"matmul_7"}, blocks.Names())
}

func TestTokenize_DropsBlockWithoutTestNumber(t *testing.T) {
	reg := testRegistry(t, "matmul")
	initial, _ := reg.Lookup("matmul")
	log := "\nStarting test garbage-line\nSUCCESS\n" +
		"Starting test inject/matmul/matmul_3\nERROR\n"

	blocks, _ := newTestTokenizer(t, reg).Tokenize(log, initial)
	assert.Equal(t, []string{"matmul_3"}, blocks.Names())
}

func TestTokenize_ClassifierSwitch(t *testing.T) {
	reg := testRegistry(t, "matmul", "fft")
	initial, _ := reg.Lookup("matmul")
	log := "\nStarting test inject/matmul/matmul_1\nSUCCESS\n" +
		"Starting test inject/FFT/fft_2\nSUCCESS\n" +
		"Starting test _3 trailing args\nSUCCESS\n" +
		"Starting test inject/crc/crc_4\nSUCCESS\n"

	blocks, diags := newTestTokenizer(t, reg).Tokenize(log, initial)
	require.Equal(t, []string{"matmul_1", "fft_2", "fft_3", "fft_4"}, blocks.Names())

	b3, _ := blocks.Get("fft_3")
	assert.Equal(t, "fft", b3.Classifier.Name(), "switch persists for later blocks")
	assert.Equal(t, "trailing args", b3.Args)

	b4, _ := blocks.Get("fft_4")
	assert.Equal(t, "fft", b4.Classifier.Name(), "unregistered benchmark keeps previous classifier")
	assert.Equal(t, 1, diags.Count(diag.CodeClassifierSwitchMiss))
}

func TestTokenize_DuplicateKeepsFirstPosition(t *testing.T) {
	reg := testRegistry(t, "matmul")
	initial, _ := reg.Lookup("matmul")
	log := "\nStarting test inject/matmul/matmul_1\nfirst\n" +
		"Starting test inject/matmul/matmul_2\nsecond\n" +
		"Starting test inject/matmul/matmul_1\nthird\n"

	blocks, diags := newTestTokenizer(t, reg).Tokenize(log, initial)
	assert.Equal(t, []string{"matmul_1", "matmul_2"}, blocks.Names())

	b, _ := blocks.Get("matmul_1")
	assert.Equal(t, "third", b.Output)
	assert.True(t, diags.Has(diag.CodeDuplicateTestEntry))
}

func TestTokenize_NoActiveClassifier(t *testing.T) {
	reg := testRegistry(t)
	blocks, diags := newTestTokenizer(t, reg).Tokenize("\nStarting test inject/x/x_1\nSUCCESS\n", nil)

	assert.Equal(t, 0, blocks.Len())
	assert.True(t, diags.Has(diag.CodeClassifierNotFound))
}

func TestTokenize_CRLFAndDigitNormalization(t *testing.T) {
	reg := testRegistry(t, "matmul")
	initial, _ := reg.Lookup("matmul")
	log := "hdr\r\nStarting test inject/matmul/matmul_0x1A\r\nSUCCESS\r\n"

	blocks, _ := newTestTokenizer(t, reg).Tokenize(log, initial)
	require.Equal(t, 1, blocks.Len())
	b := blocks.All()[0]
	assert.Equal(t, "01", b.TestNumber)
	assert.Equal(t, "matmul_01", b.Name)
	assert.Equal(t, "SUCCESS", b.Output)
}

func TestTokenize_CustomFormat(t *testing.T) {
	reg := testRegistry(t, "crc")
	initial, _ := reg.Lookup("crc")
	f := Format{
		Marker:            "=== RUN",
		TestNumberPattern: `#(\d+)`,
		TestNameFormat:    "T{test_num}",
	}
	tok, err := NewTokenizer(f, reg, nil)
	require.NoError(t, err)

	blocks, _ := tok.Tokenize("=== RUN #41\nok\n=== RUN #42\n", initial)
	assert.Equal(t, []string{"T41", "T42"}, blocks.Names())

	b, _ := blocks.Get("T42")
	assert.Equal(t, "", b.Output)
}
