package survey

import (
	"encoding/json"
	"regexp"
	"strings"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// OutputParser recovers tool calls that a model wrote into its text instead of
// using native function calling.
type OutputParser struct {
	toolCallPatterns []*regexp.Regexp
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKey   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
)

// NewOutputParser creates a parser for the common inline formats.
func NewOutputParser() *OutputParser {
	return &OutputParser{
		toolCallPatterns: []*regexp.Regexp{
			// [{"name": "tool", "arguments": {...}}]
			regexp.MustCompile(`\[\s*\{\s*"name"\s*:\s*"([^"]+)"\s*,\s*"arguments"\s*:\s*(\{.*?\})\s*\}\s*\]`),
			// {"name": "tool", "arguments": {...}}
			regexp.MustCompile(`^\s*\{\s*"name"\s*:\s*"([^"]+)"\s*,\s*"arguments"\s*:\s*(\{.*?\})\s*\}\s*$`),
			// tool({...})
			regexp.MustCompile(`(\w+)\s*\(\s*(\{.*?\})\s*\)`),
		},
	}
}

// ParseToolCalls extracts calls to the named tools from text. Calls to other
// names and arguments that cannot be repaired into JSON are ignored.
func (p *OutputParser) ParseToolCalls(text string, allowed ...string) []ports.ToolCall {
	names := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		names[n] = true
	}

	var calls []ports.ToolCall
	for _, pattern := range p.toolCallPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(match[1])
			if len(names) > 0 && !names[name] {
				continue
			}
			args := strings.TrimSpace(match[2])
			if !json.Valid([]byte(args)) {
				args = fixJSON(args)
				if !json.Valid([]byte(args)) {
					continue
				}
			}
			calls = append(calls, ports.ToolCall{Name: name, Args: json.RawMessage(args)})
		}
		if len(calls) > 0 {
			return calls
		}
	}
	return nil
}

// fixJSON repairs trailing commas, unquoted keys and single quotes.
func fixJSON(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = unquotedKey.ReplaceAllString(s, `$1"$2":`)
	return strings.ReplaceAll(s, "'", "\"")
}
