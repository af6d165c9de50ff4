package cli

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cobra"

	"github.com/getmockd/soapconnect/pkg/cli/internal/output"
	"github.com/getmockd/soapconnect/pkg/cli/internal/parse"
)

func newCallCmd(opts *rootOptions) *cobra.Command {
	var selectExpr string

	cmd := &cobra.Command{
		Use:   "call <operation> [json | @file | -]",
		Short: "Invoke an operation with a JSON payload",
		Long: `Invoke an operation with a JSON payload and print the decoded response.

Examples:
  soapconnect call GetUser '{"id": "42"}'
  soapconnect call CreateUser @user.json
  soapconnect call ListUsers '{"limit": 10}' --select '$.user[*].name'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expr jp.Expr
			if selectExpr != "" {
				var err error
				if expr, err = jp.ParseString(selectExpr); err != nil {
					return fmt.Errorf("invalid --select expression: %w", err)
				}
			}

			var input any
			if len(args) == 2 {
				var err error
				if input, err = parse.JSON(args[1], cmd.InOrStdin()); err != nil {
					return err
				}
			}

			s, err := opts.newSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			table, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}
			result, err := table.Call(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}

			if expr != nil {
				result = selectResult(expr, result)
			}
			return output.JSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&selectExpr, "select", "", "JSONPath expression applied to the result")
	return cmd
}

// selectResult applies expr. A single match is returned unwrapped.
func selectResult(expr jp.Expr, result any) any {
	matches := expr.Get(result)
	if len(matches) == 1 {
		return matches[0]
	}
	if matches == nil {
		return []any{}
	}
	return matches
}
