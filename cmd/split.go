package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmorganca/bindgen/parser"
)

func NewSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split [STRING...]",
		Short: "Split strings into clang arguments",
		Long: `Split each STRING into clang arguments the way clang_args values are
split, printing one argument per line. Without arguments each line of
standard input is split.`,
		RunE: splitHandler,
	}

	cmd.Flags().Bool("json", false, "Print the arguments as a JSON array")
	return cmd
}

func splitHandler(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		src, err := parser.ReadSource(cmd.InOrStdin())
		if err != nil {
			return err
		}
		args = strings.Split(strings.TrimRight(src, "\r\n"), "\n")
	}

	out := []string{}
	for _, arg := range args {
		out = append(out, parser.SplitArgs(strings.TrimSuffix(arg, "\r"))...)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}

	for _, arg := range out {
		fmt.Fprintln(cmd.OutOrStdout(), arg)
	}
	return nil
}
