package logparse

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/diag"
)

// Lookup resolves a benchmark name to a classifier.
// *classifier.Registry satisfies it.
type Lookup interface {
	Lookup(name string) (classifier.Classifier, bool)
}

// Block is one tokenized test.
type Block struct {
	Name       string
	Benchmark  string
	Classifier classifier.Classifier
	TestNumber string
	Args       string
	Output     string
}

// Blocks holds tokenized blocks in first-seen order, keyed by test name.
type Blocks struct {
	names  []string
	byName map[string]Block
}

func newBlocks() *Blocks {
	return &Blocks{byName: make(map[string]Block)}
}

// put stores b, keeping the position of an earlier block with the same
// name. It reports whether a block was replaced.
func (b *Blocks) put(block Block) bool {
	_, replaced := b.byName[block.Name]
	if !replaced {
		b.names = append(b.names, block.Name)
	}
	b.byName[block.Name] = block
	return replaced
}

// Len returns the number of blocks.
func (b *Blocks) Len() int { return len(b.names) }

// Names returns the test names in order.
func (b *Blocks) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Get returns the block for name.
func (b *Blocks) Get(name string) (Block, bool) {
	block, ok := b.byName[name]
	return block, ok
}

// All returns the blocks in order.
func (b *Blocks) All() []Block {
	out := make([]Block, 0, len(b.names))
	for _, name := range b.names {
		out = append(out, b.byName[name])
	}
	return out
}

// Tokenizer splits logs according to a Format.
type Tokenizer struct {
	format     Format
	testNumber *regexp.Regexp
	benchmark  *regexp.Regexp
	lookup     Lookup
	logger     *slog.Logger
}

// NewTokenizer validates f and builds a tokenizer. lookup may be nil, in
// which case benchmark switches are never honored.
func NewTokenizer(f Format, lookup Lookup, logger *slog.Logger) (*Tokenizer, error) {
	testNumber, benchmark, err := f.compile()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tokenizer{
		format:     f,
		testNumber: testNumber,
		benchmark:  benchmark,
		lookup:     lookup,
		logger:     logger,
	}, nil
}

// cursor tracks the active classifier while walking the blocks.
type cursor struct {
	name       string
	classifier classifier.Classifier
}

// Tokenize splits text into blocks. initial is the classifier active before
// any benchmark switch; it may be nil.
//
// Text before the first marker is discarded. A block whose first line does
// not match the test-number pattern produces nothing.
func (t *Tokenizer) Tokenize(text string, initial classifier.Classifier) (*Blocks, diag.List) {
	var diags diag.List
	blocks := newBlocks()

	cur := cursor{classifier: initial}
	if initial != nil {
		cur.name = strings.ToLower(initial.Name())
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	sep := "\n" + t.format.Marker
	if strings.HasPrefix(text, t.format.Marker) {
		text = "\n" + text
	}
	parts := strings.Split(text, sep)

	for _, part := range parts[1:] {
		lines := strings.Split(strings.TrimSpace(part), "\n")
		first := strings.TrimSpace(lines[0])

		if t.benchmark != nil {
			if m := t.benchmark.FindStringSubmatch(first); m != nil {
				cur = t.switchTo(cur, strings.ToLower(m[1]), &diags)
			}
		}

		m := t.testNumber.FindStringSubmatch(first)
		if m == nil {
			t.logger.Debug("block dropped: no test number", "line", first)
			continue
		}
		num := digits(m[1])
		args := ""
		if len(m) > 2 {
			args = strings.TrimSpace(m[2])
		}

		if cur.classifier == nil {
			diags.Warn(diag.CodeClassifierNotFound, "", "block %q dropped: no active classifier", first)
			continue
		}

		var output []string
		for _, line := range lines[1:] {
			if strings.HasPrefix(line, t.format.Marker) {
				break
			}
			if s := strings.TrimSpace(line); s != "" {
				output = append(output, s)
			}
		}

		block := Block{
			Name:       t.format.TestName(cur.name, num),
			Benchmark:  cur.name,
			Classifier: cur.classifier,
			TestNumber: num,
			Args:       args,
			Output:     strings.Join(output, "\n"),
		}
		if blocks.put(block) {
			diags.Warn(diag.CodeDuplicateTestEntry, block.Name, "test %s appears more than once; later block kept", block.Name)
		}
	}
	return blocks, diags
}

// switchTo moves the cursor to the classifier named name, when registered.
func (t *Tokenizer) switchTo(cur cursor, name string, diags *diag.List) cursor {
	if name == cur.name {
		return cur
	}
	if t.lookup != nil {
		if c, ok := t.lookup.Lookup(name); ok {
			t.logger.Debug("classifier switched", "from", cur.name, "to", name)
			return cursor{name: name, classifier: c}
		}
	}
	diags.Info(diag.CodeClassifierSwitchMiss, "", "benchmark %q is not registered; keeping %q", name, cur.name)
	return cur
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
