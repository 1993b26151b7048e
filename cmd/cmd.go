package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmorganca/bindgen/envconfig"
	"github.com/jmorganca/bindgen/logutil"
	"github.com/jmorganca/bindgen/parser"
	"github.com/jmorganca/bindgen/version"
)

var errRejected = errors.New("arguments rejected")

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bindgen-args",
		Short:   "Parse and check bindgen macro arguments",
		Version: version.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
	}

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		NewParseCmd(),
		NewSplitCmd(),
		NewCheckCmd(),
	)

	appendEnvDocs(rootCmd)
	return rootCmd
}

func appendEnvDocs(cmd *cobra.Command) {
	envs := envconfig.AsMap()

	keys := make([]string, 0, len(envs))
	for k := range envs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("\nEnvironment Variables:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "      %-28s %s\n", envs[k].Name, envs[k].Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + sb.String())
}

// isTerminal reports whether w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// reportDiagnostics writes diags to w. On a terminal each diagnostic is
// followed by the source line it points at.
func reportDiagnostics(w io.Writer, filename, src string, diags []parser.Diagnostic) error {
	caret := isTerminal(w)
	for _, d := range diags {
		if caret {
			if err := d.Render(w, filename, src); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%s:%s\n", filename, d.Error()); err != nil {
			return err
		}
	}
	return nil
}

// debugDiagnostics logs each diagnostic for filename at debug level.
func debugDiagnostics(filename string) parser.Diagnostics {
	return parser.SlogDiagnostics{Logger: slog.Default().With("file", filename), Level: slog.LevelDebug}
}
