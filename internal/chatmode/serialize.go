package chatmode

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Serialize renders a document back into the wire format. Recognized keys
// are emitted in a fixed order (description, tools, model) followed by any
// extra keys sorted by name, so serialize→parse round-trips are stable.
func Serialize(d *Document) []byte {
	var buf bytes.Buffer
	buf.WriteString(fence)
	buf.WriteByte('\n')

	writeYAMLKey(&buf, "description", d.Description)
	if len(d.Tools) > 0 {
		buf.WriteString("tools: ")
		buf.WriteString(formatToolsList(d.Tools))
		buf.WriteByte('\n')
	}
	if d.Model != "" {
		writeYAMLKey(&buf, "model", d.Model)
	}

	extraKeys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		writeYAMLKey(&buf, k, d.Extra[k])
	}

	buf.WriteString(fence)
	buf.WriteByte('\n')
	buf.WriteString(d.Body)
	return buf.Bytes()
}

// formatToolsList renders the bracketed, single-quoted list form used by
// chatmode files: ['codebase', 'search'].
func formatToolsList(tools []string) string {
	quoted := make([]string, len(tools))
	for i, t := range tools {
		quoted[i] = "'" + strings.ReplaceAll(t, "'", "''") + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// writeYAMLKey emits a single key: value line, letting the YAML encoder
// handle quoting of awkward scalar values.
func writeYAMLKey(buf *bytes.Buffer, key string, value any) {
	out, err := yaml.Marshal(map[string]any{key: value})
	if err != nil {
		fmt.Fprintf(buf, "%s: %v\n", key, value)
		return
	}
	buf.Write(out)
}
