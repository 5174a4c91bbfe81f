package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/tidwall/pretty"
)

// ShouldUseColor reports whether w is a terminal that accepts colors.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteJSON pretty prints v, which may already be encoded JSON. Object key
// order is kept.
func WriteJSON(w io.Writer, v any) error {
	var data []byte
	switch raw := v.(type) {
	case []byte:
		data = raw
	case json.RawMessage:
		data = raw
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		data = encoded
	}
	out := pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  "})
	if ShouldUseColor(w) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}
