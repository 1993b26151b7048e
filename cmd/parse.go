package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jmorganca/bindgen/bindgen"
	"github.com/jmorganca/bindgen/envconfig"
	"github.com/jmorganca/bindgen/parser"
)

func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [ARGS]",
		Short: "Parse a bindgen argument list",
		Long: `Parse a bindgen argument list and print the options it binds.

The list is read from ARGS, from the file given with --file, or from
standard input, in that order of preference:

    bindgen-args parse '"-I include", match="zlib.h", link="static=z"'`,
		Args: cobra.MaximumNArgs(1),
		RunE: parseHandler,
	}

	cmd.Flags().StringP("file", "f", "", "Read the argument list from a file (\"-\" for stdin)")
	cmd.Flags().Bool("json", false, "Print the options as JSON")
	return cmd
}

func parseHandler(cmd *cobra.Command, args []string) error {
	filename, src, err := parseSource(cmd, args)
	if err != nil {
		return err
	}

	opts := bindgen.DefaultOptions()
	var diags parser.DiagnosticList
	ok := parser.ParseString(src, opts, parser.Tee(&diags, debugDiagnostics(filename)))
	if err := reportDiagnostics(cmd.ErrOrStderr(), filename, src, diags.Diagnostics); err != nil {
		return err
	}

	if !ok {
		return errRejected
	}

	opts.ClangArgs = append(opts.ClangArgs, envconfig.ExtraClangArgs...)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(opts)
	}

	optionsTable(cmd.OutOrStdout(), opts)
	return nil
}

func parseSource(cmd *cobra.Command, args []string) (string, string, error) {
	filename, _ := cmd.Flags().GetString("file")
	switch {
	case filename == "-" || (filename == "" && len(args) == 0):
		src, err := parser.ReadSource(cmd.InOrStdin())
		return "<stdin>", src, err
	case filename != "":
		if len(args) > 0 {
			return "", "", errors.New("cannot use --file with an argument list")
		}

		f, err := os.Open(filename)
		if err != nil {
			return "", "", err
		}
		defer f.Close()

		src, err := parser.ReadSource(f)
		return filename, src, err
	default:
		return "<args>", args[0], nil
	}
}

func optionsTable(w io.Writer, opts *bindgen.Options) {
	data := [][]string{
		{"builtins", strconv.FormatBool(opts.Builtins)},
		{"allow_unknown_types", strconv.FormatBool(!opts.FailOnUnknownType)},
	}

	if opts.OverrideEnumType != "" {
		data = append(data, []string{"enum_type", opts.OverrideEnumType})
	}

	if len(opts.ClangArgs) > 0 {
		data = append(data, []string{"clang_args", strings.Join(opts.ClangArgs, " ")})
	}

	for _, m := range opts.MatchPatterns {
		data = append(data, []string{"match", m})
	}

	for _, l := range opts.Links {
		data = append(data, []string{"link", l.String()})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"OPTION", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
