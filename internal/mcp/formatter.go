package mcp

import (
	"fmt"
	"strings"
)

// Formatter renders a tool's result into the single text block the MCP
// content protocol expects, generalizing the teacher's icon-plus-separator
// FormatToolResponse idiom down to factengine's seven tools.
type Formatter struct{}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) header(toolName string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", toolIcon(toolName), toolName))
	sb.WriteString("----------------------------------------\n")
	return sb.String()
}

func toolIcon(toolName string) string {
	switch toolName {
	case "remember_facts":
		return "[facts]"
	case "store_memory":
		return "[store]"
	case "recall_memories":
		return "[recall]"
	case "forget_memory":
		return "[forget]"
	case "recall_memory_block", "replace_memory_block", "append_memory_block":
		return "[block]"
	default:
		return "[tool]"
	}
}
