package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// PrintJSON writes data as indented JSON. A json.RawMessage is re-indented
// rather than re-encoded.
func PrintJSON(w io.Writer, data any) error {
	if raw, ok := data.(json.RawMessage); ok {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return PrintRaw(w, []byte(raw))
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintRaw writes a body verbatim, adding a trailing newline when missing.
func PrintRaw(w io.Writer, data any) error {
	var b []byte
	switch v := data.(type) {
	case []byte:
		b = v
	case json.RawMessage:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("raw output needs bytes or a string, got %T", data)
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if len(b) > 0 && b[len(b)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
