package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmorganca/bindgen/bindgen"
	"github.com/jmorganca/bindgen/envconfig"
	"github.com/jmorganca/bindgen/logutil"
	"github.com/jmorganca/bindgen/macro"
	"github.com/jmorganca/bindgen/parser"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Check the bindgen invocations in source files",
		Long: `Find every bindgen!(...) invocation in each FILE and bind its
arguments, reporting any that are rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: checkHandler,
	}

	cmd.Flags().String("macro", "", "Name of the macro to look for (default $BINDGEN_MACRO or \"bindgen\")")
	cmd.Flags().StringSliceP("search-path", "I", nil, "Directory passed to clang with -idirafter")
	cmd.Flags().Bool("json", false, "Print the bound options of each invocation as JSON")
	cmd.Flags().Bool("print-clang", false, "Print the clang command line of each invocation")
	return cmd
}

type invocationResult struct {
	Line    int              `json:"line"`
	Col     int              `json:"col"`
	OK      bool             `json:"ok"`
	Options *bindgen.Options `json:"options,omitempty"`
	Command string           `json:"command,omitempty"`
}

type checkResult struct {
	Filename    string             `json:"file"`
	Invocations []invocationResult `json:"invocations"`

	src   string
	diags parser.DiagnosticList
}

func (r *checkResult) counts() (errs, warns int) {
	for _, d := range r.diags.Diagnostics {
		switch d.Level {
		case parser.LevelError:
			errs++
		case parser.LevelWarn:
			warns++
		}
	}
	return errs, warns
}

func checkHandler(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("macro")
	if name == "" {
		name = envconfig.MacroName
	}

	searchPaths, _ := cmd.Flags().GetStringSlice("search-path")
	printClang, _ := cmd.Flags().GetBool("print-clang")
	cfg := macro.Config{
		SearchPaths:    searchPaths,
		ExtraClangArgs: envconfig.ExtraClangArgs,
	}

	results := make([]*checkResult, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, filename := range args {
		i, filename := i, filename
		g.Go(func() error {
			r, err := checkFile(ctx, filename, name, cfg, printClang)
			if err != nil {
				return fmt.Errorf("%s: %w", filename, err)
			}

			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	failed := false
	for _, r := range results {
		if err := reportDiagnostics(cmd.ErrOrStderr(), r.Filename, r.src, r.diags.Diagnostics); err != nil {
			return err
		}

		failed = failed || r.diags.HasErrors()
	}

	w := cmd.OutOrStdout()
	switch asJSON, _ := cmd.Flags().GetBool("json"); {
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	case printClang:
		for _, r := range results {
			for _, inv := range r.Invocations {
				if inv.OK {
					fmt.Fprintf(w, "%s:%d:%d: %s\n", r.Filename, inv.Line, inv.Col, inv.Command)
				}
			}
		}
	default:
		summaryTable(w, results)
	}

	if failed {
		return errRejected
	}

	return nil
}

func checkFile(ctx context.Context, filename, name string, cfg macro.Config, printClang bool) (*checkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := parser.ReadSource(f)
	if err != nil {
		return nil, err
	}

	logutil.TraceContext(ctx, "scanning file", "file", filename, "macro", name, "size", len(src))

	r := checkResult{Filename: filename, Invocations: []invocationResult{}, src: src}
	diags := parser.Tee(&r.diags, debugDiagnostics(filename))

	invs, err := macro.Find(filename, src, name)
	if err != nil {
		var se *parser.SyntaxError
		if !errors.As(err, &se) {
			return nil, err
		}
		diags.Error(se.Span, se.Msg)
	}

	for _, inv := range invs {
		ir := invocationResult{Line: inv.Span.Start.Line, Col: inv.Span.Start.Col}
		if printClang {
			ir.Command, ir.OK = macro.Run(ctx, inv, clangCommand{}, cfg, diags)
		} else {
			opts, ok := macro.Bind(inv, cfg, diags)
			if ok {
				ir.Options = opts
			}
			ir.OK = ok
		}
		r.Invocations = append(r.Invocations, ir)
	}

	slog.Debug("checked file", "file", filename, "invocations", len(invs), "diagnostics", len(r.diags.Diagnostics))
	return &r, nil
}

func summaryTable(w io.Writer, results []*checkResult) {
	var data [][]string
	for _, r := range results {
		errs, warns := r.counts()
		status := "ok"
		if errs > 0 {
			status = "failed"
		}

		data = append(data, []string{
			r.Filename,
			strconv.Itoa(len(r.Invocations)),
			strconv.Itoa(errs),
			strconv.Itoa(warns),
			status,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"FILE", "INVOCATIONS", "ERRORS", "WARNINGS", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// clangCommand is a generator that renders the clang command line for the
// bound options instead of generating bindings.
type clangCommand struct{}

func (clangCommand) Generate(_ context.Context, opts *bindgen.Options, logger bindgen.Logger) (string, error) {
	if len(opts.MatchPatterns) == 0 {
		logger.Warn("no match patterns, bindings are generated for every header")
	}

	return shellquote.Join(append([]string{"clang"}, opts.ClangArgs...)...), nil
}
