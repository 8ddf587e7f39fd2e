package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/system.txt
var systemRaw string

// System returns the trimmed support-bot system prompt. The embed is
// compile-time, so this is safe to call from anywhere.
func System() string {
	return strings.TrimSpace(systemRaw)
}
