package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// PrintYAML writes data as YAML with two-space indentation. A
// json.RawMessage is decoded first so the YAML mirrors the JSON document.
func PrintYAML(w io.Writer, data any) error {
	if raw, ok := data.(json.RawMessage); ok {
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		data = doc
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(data)
}
