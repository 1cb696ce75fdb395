package usage

import "strings"

// ToolCall is the classification of a tool name reported by the CLI.
type ToolCall struct {
	Plugin  string
	Method  string
	Builtin bool
}

// Builtin tool names the CLI exposes natively.
var builtinTools = []string{
	"Bash",
	"Read",
	"Write",
	"Edit",
	"Glob",
	"Grep",
	"WebFetch",
	"WebSearch",
	"Task",
	"TodoWrite",
}

// ClassifyToolCall splits a tool name into its plugin and method parts.
// Plugin tools use a double-underscore separator ("calendar__create_event").
// Names without the separator are matched case-insensitively against the
// builtin tool list; anything else is an unqualified method.
func ClassifyToolCall(name string) ToolCall {
	if pluginName, method, ok := strings.Cut(name, "__"); ok && pluginName != "" && method != "" {
		return ToolCall{Plugin: pluginName, Method: method}
	}
	for _, b := range builtinTools {
		if strings.EqualFold(b, name) {
			return ToolCall{Method: b, Builtin: true}
		}
	}
	return ToolCall{Method: name}
}
