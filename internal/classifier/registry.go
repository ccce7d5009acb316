package classifier

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tollsimy/rapid/internal/config"
	"github.com/tollsimy/rapid/internal/diag"
)

// Sources lists where classifiers come from. Load registers them in field
// order: built-ins, then files, then directories.
type Sources struct {
	Builtins []string
	Files    []string
	Dirs     []string
}

// Registry maps classifier names to classifiers.
// A later registration under an existing name replaces the earlier one.
type Registry struct {
	logger      *slog.Logger
	classifiers map[string]Classifier
}

// NewRegistry creates an empty registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		classifiers: make(map[string]Classifier),
	}
}

// Register adds c under its lowercased name.
func (r *Registry) Register(c Classifier) error {
	if c == nil {
		return fmt.Errorf("register: nil classifier")
	}
	name := strings.ToLower(strings.TrimSpace(c.Name()))
	if name == "" {
		return fmt.Errorf("register: classifier has no name")
	}
	if _, ok := r.classifiers[name]; ok {
		r.logger.Warn("classifier replaced", "name", name)
	}
	r.classifiers[name] = c
	r.logger.Debug("classifier registered", "name", name)
	return nil
}

// Load registers every source. Bad sources are skipped and reported;
// loading never stops on a single invalid classifier.
func (r *Registry) Load(src Sources) diag.List {
	var diags diag.List
	for _, name := range src.Builtins {
		ctor, ok := Builtin(name)
		if !ok {
			diags.Warn(diag.CodeInvalidClassifier, "", "unknown built-in classifier %q (available: %v)", name, BuiltinNames())
			continue
		}
		if err := r.Register(ctor()); err != nil {
			diags.Warn(diag.CodeInvalidClassifier, "", "built-in %s: %v", name, err)
		}
	}
	diags.Extend(r.LoadFiles(src.Files))
	for _, dir := range src.Dirs {
		diags.Extend(r.LoadDir(dir))
	}
	diags.Log(r.logger)
	return diags
}

// LoadFiles compiles and registers each definition file in order.
func (r *Registry) LoadFiles(paths []string) diag.List {
	var diags diag.List
	for _, path := range paths {
		c, err := LoadDefinition(path)
		if err != nil {
			diags.Warn(diag.CodeInvalidClassifier, "", "skipping classifier: %v", err)
			continue
		}
		if err := r.Register(c); err != nil {
			diags.Warn(diag.CodeInvalidClassifier, "", "%s: %v", path, err)
		}
	}
	return diags
}

// LoadDir registers every definition file directly inside dir, in name order.
func (r *Registry) LoadDir(dir string) diag.List {
	var diags diag.List
	entries, err := os.ReadDir(dir)
	if err != nil {
		diags.Warn(diag.CodeInvalidClassifier, "", "skipping classifier directory: %v", err)
		return diags
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !config.Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return r.LoadFiles(paths)
}

// Lookup returns the classifier registered under name.
func (r *Registry) Lookup(name string) (Classifier, bool) {
	c, ok := r.classifiers[strings.ToLower(name)]
	return c, ok
}

// All returns a copy of the name to classifier mapping.
func (r *Registry) All() map[string]Classifier {
	out := make(map[string]Classifier, len(r.classifiers))
	for name, c := range r.classifiers {
		out[name] = c
	}
	return out
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classifiers))
	for name := range r.classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered classifiers.
func (r *Registry) Len() int {
	return len(r.classifiers)
}

// Detect selects the classifier whose name occurs in the lowercased base
// name of filename. The longest matching name wins; ties go to the
// lexically smaller name.
func (r *Registry) Detect(filename string) (Classifier, error) {
	base := strings.ToLower(filepath.Base(filename))
	best := ""
	for _, name := range r.Names() {
		if !strings.Contains(base, name) {
			continue
		}
		if len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return nil, diag.NewClassifierNotFound(filename, r.Names())
	}
	r.logger.Debug("classifier detected", "file", filename, "classifier", best)
	return r.classifiers[best], nil
}
