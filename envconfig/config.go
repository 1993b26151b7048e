package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmorganca/bindgen/logutil"
	"github.com/jmorganca/bindgen/parser"
)

const defaultMacroName = "bindgen"

var (
	// Set via BINDGEN_DEBUG in the environment
	Debug int
	// Set via BINDGEN_EXTRA_CLANG_ARGS in the environment
	ExtraClangArgs []string
	// Set via BINDGEN_MACRO in the environment
	MacroName string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BINDGEN_DEBUG":            {"BINDGEN_DEBUG", Debug, "Show additional debug information (e.g. BINDGEN_DEBUG=1, or 2 for trace)"},
		"BINDGEN_EXTRA_CLANG_ARGS": {"BINDGEN_EXTRA_CLANG_ARGS", ExtraClangArgs, "Extra clang arguments appended to every invocation"},
		"BINDGEN_MACRO":            {"BINDGEN_MACRO", MacroName, "Name of the macro scanned for by check (default \"bindgen\")"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// LogLevel maps Debug onto a slog level.
func LogLevel() slog.Level {
	switch {
	case Debug >= 2:
		return logutil.LevelTrace
	case Debug == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = 0
	if debug := clean("BINDGEN_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil {
			Debug = max(n, 0)
		} else if b, err := strconv.ParseBool(debug); err == nil {
			if b {
				Debug = 1
			}
		} else {
			Debug = 1
		}
	}

	ExtraClangArgs = nil
	// quotes are significant to the splitter, so only spaces are trimmed
	if extra := strings.TrimSpace(os.Getenv("BINDGEN_EXTRA_CLANG_ARGS")); extra != "" {
		ExtraClangArgs = parser.SplitArgs(extra)
	}

	MacroName = defaultMacroName
	if name := clean("BINDGEN_MACRO"); name != "" {
		MacroName = strings.TrimSuffix(name, "!")
	}
}
