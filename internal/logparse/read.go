package logparse

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// asciiReplacer replaces ill-formed UTF-8 and every non-ASCII rune with
// U+FFFD, so that garbled serial output stays visible to classifiers.
func asciiReplacer() transform.Transformer {
	return transform.Chain(
		runes.ReplaceIllFormed(),
		runes.Map(func(r rune) rune {
			if r > 0x7F {
				return utf8.RuneError
			}
			return r
		}),
	)
}

// DecodeASCII reads r as ASCII with replacement.
func DecodeASCII(r io.Reader) (string, error) {
	data, err := io.ReadAll(transform.NewReader(r, asciiReplacer()))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadLog reads a log file as ASCII with replacement.
func ReadLog(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := DecodeASCII(f)
	if err != nil {
		return "", fmt.Errorf("read log %s: %w", path, err)
	}
	return text, nil
}
