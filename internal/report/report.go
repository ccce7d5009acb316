// Package report renders aggregate counts as text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tollsimy/rapid/internal/aggregate"
	"github.com/tollsimy/rapid/internal/record"
)

// Options controls rendering.
type Options struct {
	Palette Palette
	NoColor bool
}

// section is one titled table. keys name the palette entry of each column
// header; rowKeys the palette entry of each row's first cell. Either may be
// shorter than its dimension or nil.
type section struct {
	title   string
	headers []string
	keys    []string
	rowKeys []string
	rows    [][]string
	notes   []string
}

type renderer struct {
	w       io.Writer
	lg      *lipgloss.Renderer
	palette Palette
	noColor bool
}

func newRenderer(w io.Writer, opts Options) *renderer {
	palette := opts.Palette
	if palette.colors == nil {
		palette = DefaultPalette()
	}
	return &renderer{w: w, lg: lipgloss.NewRenderer(w), palette: palette, noColor: opts.NoColor}
}

// Render writes every report table of c to w.
func Render(w io.Writer, c *aggregate.Counts, opts Options) error {
	r := newRenderer(w, opts)
	title := r.lg.NewStyle().Bold(true).Render("Benchmark: " + c.Benchmark)
	if _, err := fmt.Fprintf(w, "%s (%d tests)\n", title, c.Total); err != nil {
		return err
	}

	sections := []section{
		coverageSection(c),
		validationSection(c),
		crossTabSection(c),
		overlapSection(c),
		strictSection(c),
	}
	if s, ok := trapSection(c); ok {
		sections = append(sections, s)
	}
	if s, ok := bitSection(c); ok {
		sections = append(sections, s)
	}
	for _, s := range sections {
		if err := r.section(s); err != nil {
			return err
		}
	}
	return r.warnings(c)
}

// RenderComparison writes one strict-failure row per benchmark.
func RenderComparison(w io.Writer, all []*aggregate.Counts, opts Options) error {
	r := newRenderer(w, opts)
	s := section{
		title:   "Strict Failures by Benchmark",
		headers: append([]string{"Benchmark"}, strictHeaders()...),
		keys:    append([]string{""}, strictKeys()...),
	}
	for _, c := range all {
		s.rows = append(s.rows, append([]string{c.Benchmark}, strictPercents(c)...))
	}
	if err := r.section(s); err != nil {
		return err
	}
	for _, c := range all {
		if err := r.warnings(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) section(s section) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(s.headers...).
		Rows(s.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := r.lg.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				st = st.Bold(true)
				if col < len(s.keys) {
					st = r.colored(st, s.keys[col])
				}
			case col == 0 && row < len(s.rowKeys):
				st = r.colored(st, s.rowKeys[row])
			}
			return st
		})

	heading := r.lg.NewStyle().Bold(true).Render(s.title + ":")
	if _, err := fmt.Fprintf(r.w, "\n%s\n%s\n", heading, t.String()); err != nil {
		return err
	}
	for _, note := range s.notes {
		if _, err := fmt.Fprintln(r.w, note); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) colored(st lipgloss.Style, key string) lipgloss.Style {
	if r.noColor || key == "" {
		return st
	}
	if c, ok := r.palette.Color(key); ok {
		return st.Foreground(c)
	}
	return st
}

func (r *renderer) warnings(c *aggregate.Counts) error {
	warn := r.lg.NewStyle().Bold(true)
	if !r.noColor {
		if color, ok := r.palette.Color(string(record.ClassFailed)); ok {
			warn = warn.Foreground(color)
		}
	}
	for _, d := range c.Warnings {
		if _, err := fmt.Fprintf(r.w, "\n%s %s\n", warn.Render("WARNING:"), d.Message); err != nil {
			return err
		}
	}
	return nil
}

func percent(n, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)*100/float64(total))
}

func itoa(n int) string { return strconv.Itoa(n) }

func coverageSection(c *aggregate.Counts) section {
	cov := c.Coverage
	return section{
		title:   "Test Coverage",
		headers: []string{"Metric", "Count", "%"},
		rowKeys: []string{KeyAll, "", "", KeyMissing},
		rows: [][]string{
			{"Total tests", itoa(cov.Total), percent(cov.Total, cov.Total)},
			{"Classified", itoa(cov.Classified), percent(cov.Classified, cov.Total)},
			{"With output", itoa(cov.WithOutput), percent(cov.WithOutput, cov.Total)},
			{"Needs manual check", itoa(cov.NeedsManualCheck), percent(cov.NeedsManualCheck, cov.Total)},
		},
	}
}

func validationSection(c *aggregate.Counts) section {
	s := section{
		title:   "Raw Counts",
		headers: []string{"Category", "Count"},
		rows: [][]string{
			{"total_tests", itoa(c.Total)},
			{"needs_manual_check", itoa(c.Coverage.NeedsManualCheck)},
		},
		rowKeys: []string{KeyAll, KeyMissing},
	}
	for _, class := range record.Classes {
		s.rows = append(s.rows, []string{string(class), itoa(c.Class(class).Total)})
		s.rowKeys = append(s.rowKeys, string(class))
	}
	for _, kind := range record.EventKinds {
		s.rows = append(s.rows, []string{string(kind), itoa(c.Events[kind])})
		s.rowKeys = append(s.rowKeys, string(kind))
	}
	s.rows = append(s.rows, []string{KeySDC, itoa(c.SDC)})
	s.rowKeys = append(s.rowKeys, KeySDC)
	return s
}

func crossTabSection(c *aggregate.Counts) section {
	s := section{
		title:   "Class by Condition",
		headers: []string{"Class", KeyClean},
		keys:    []string{"", KeyClean},
	}
	for _, kind := range record.EventKinds {
		s.headers = append(s.headers, string(kind))
		s.keys = append(s.keys, string(kind))
	}
	s.headers = append(s.headers, KeySDC, "manual", "sum", "total")
	s.keys = append(s.keys, KeySDC, KeyMissing, "", KeyAll)

	for _, class := range record.Classes {
		cc := c.Class(class)
		row := []string{string(class), itoa(cc.Clean)}
		for _, kind := range record.EventKinds {
			row = append(row, itoa(cc.Events[kind]))
		}
		row = append(row, itoa(cc.SDC), itoa(cc.Manual), itoa(cc.MembershipSum()), itoa(cc.Total))
		s.rows = append(s.rows, row)
		s.rowKeys = append(s.rowKeys, string(class))
	}
	s.notes = []string{"Note: a test carrying several conditions is counted in each of them, so sum can exceed total."}
	return s
}

func overlapSection(c *aggregate.Counts) section {
	s := section{
		title:   "Overlap",
		headers: []string{"Class", "Total", "Sum of conditions", "Difference", "Overlapping tests"},
	}
	for _, class := range record.Classes {
		cc := c.Class(class)
		s.rows = append(s.rows, []string{
			string(class), itoa(cc.Total), itoa(cc.MembershipSum()), itoa(cc.OverlapDiff()), itoa(cc.Overlapping),
		})
		s.rowKeys = append(s.rowKeys, string(class))
	}
	return s
}

func strictHeaders() []string {
	return []string{"trap", "halt", "comm failure", "exec failure", "hw reset", "SDC", "others", "uncategorized", "Total"}
}

func strictKeys() []string {
	keys := make([]string, 0, len(record.EventKinds)+4)
	for _, kind := range record.EventKinds {
		keys = append(keys, string(kind))
	}
	return append(keys, KeySDC, KeyOther, KeyMissing, KeyAll)
}

func strictValues(c *aggregate.Counts) []int {
	p := c.Partition
	values := make([]int, 0, len(record.EventKinds)+4)
	for _, kind := range record.EventKinds {
		values = append(values, p.Exactly[kind])
	}
	return append(values, p.ExactlySDC, p.Others(), p.Uncategorized, c.Total-p.CleanPassed)
}

func strictPercents(c *aggregate.Counts) []string {
	values := strictValues(c)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = percent(v, c.Total)
	}
	return out
}

func strictSection(c *aggregate.Counts) section {
	values := strictValues(c)
	counts := make([]string, len(values))
	for i, v := range values {
		counts[i] = itoa(v)
	}
	p := c.Partition
	return section{
		title:   "Strict Failures Breakdown",
		headers: append([]string{"Benchmark"}, strictHeaders()...),
		keys:    append([]string{""}, strictKeys()...),
		rows: [][]string{
			append([]string{c.Benchmark}, strictPercents(c)...),
			append([]string{"counts"}, counts...),
		},
		notes: []string{
			"Note: main categories hold tests with exactly that condition and nothing else.",
			"      'others' holds tests with multiple conditions or none; 'uncategorized' needs manual verification.",
			fmt.Sprintf("      Multiple events: %d, No specific events: %d, Manual check needed: %d",
				p.Multiple, p.NoEvent, p.Uncategorized),
		},
	}
}

func trapSection(c *aggregate.Counts) (section, bool) {
	if len(c.TrapCauses) == 0 {
		return section{}, false
	}
	total := 0
	for _, tc := range c.TrapCauses {
		total += tc.Count
	}
	s := section{
		title:   "Trap Causes Breakdown",
		headers: []string{"Trap Cause", "Code", "Count", "% of Traps"},
		keys:    []string{string(record.EventTrap)},
	}
	for _, tc := range c.TrapCauses {
		s.rows = append(s.rows, []string{tc.Name, record.FormatCause(tc.Code), itoa(tc.Count), percent(tc.Count, total)})
	}
	s.rows = append(s.rows, []string{"TOTAL TRAPS", "", itoa(total), percent(total, total)})
	return s, true
}

func bitSection(c *aggregate.Counts) (section, bool) {
	if len(c.BitPositions) == 0 {
		return section{}, false
	}
	s := section{
		title:   "Outcomes by Bit Position",
		headers: []string{"Bit", "passed", "failed", "trap", "halt"},
		keys: []string{"", string(record.ClassPassed), string(record.ClassFailed),
			string(record.EventTrap), string(record.EventHalt)},
	}
	for _, b := range c.BitPositions {
		s.rows = append(s.rows, []string{itoa(b.Position), itoa(b.Passed), itoa(b.Failed), itoa(b.Trap), itoa(b.Halt)})
	}
	return s, true
}

// Summary is a one-line description of c.
func Summary(c *aggregate.Counts) string {
	parts := make([]string, 0, len(record.Classes))
	for _, class := range record.Classes {
		parts = append(parts, fmt.Sprintf("%s=%d", class, c.Class(class).Total))
	}
	return fmt.Sprintf("%s: %d tests (%s)", c.Benchmark, c.Total, strings.Join(parts, ", "))
}
