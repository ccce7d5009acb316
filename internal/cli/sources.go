package cli

import (
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/tollsimy/rapid/internal/classifier"
	"github.com/tollsimy/rapid/internal/diag"
)

// ClassifierFlags selects the classifiers a command registers.
type ClassifierFlags struct {
	Files    []string
	Dirs     []string
	Builtins []string
}

func (c *ClassifierFlags) bind(flags *pflag.FlagSet) {
	flags.StringArrayVar(&c.Files, "classifier", nil, "classifier definition file (repeatable)")
	flags.StringArrayVar(&c.Dirs, "classifier-dir", nil, "directory of classifier definitions (repeatable)")
	flags.StringSliceVar(&c.Builtins, "builtin", []string{classifier.ExampleName},
		"built-in classifiers to register")
}

// Registry loads every selected classifier. Invalid sources are skipped and
// reported in the returned list.
func (c *ClassifierFlags) Registry(logger *slog.Logger) (*classifier.Registry, diag.List) {
	reg := classifier.NewRegistry(logger)
	diags := reg.Load(classifier.Sources{
		Builtins: c.Builtins,
		Files:    c.Files,
		Dirs:     c.Dirs,
	})
	return reg, diags
}
