package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapconnect/pkg/config"
)

// ValidateOutput is the --json form of validate.
type ValidateOutput struct {
	Path   string          `json:"path"`
	Valid  bool            `json:"valid"`
	Errors []ValidateIssue `json:"errors,omitempty"`
}

// ValidateIssue is one schema violation.
type ValidateIssue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a settings file without connecting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}

			result := ValidateOutput{Path: path, Valid: true}
			_, err := config.LoadFromFile(path)
			if err != nil {
				result.Valid = false
				var schemaErr *config.SchemaValidationResult
				if errors.As(err, &schemaErr) {
					for _, e := range schemaErr.Errors {
						result.Errors = append(result.Errors, ValidateIssue{Path: e.Path, Message: e.Message})
					}
				} else {
					result.Errors = []ValidateIssue{{Message: err.Error()}}
				}
			}

			out := cmd.OutOrStdout()
			if perr := opts.printResult(out, result, func() {
				if result.Valid {
					fmt.Fprintf(out, "%s: valid\n", path)
					return
				}
				fmt.Fprintf(out, "%s: invalid\n", path)
				for _, e := range result.Errors {
					if e.Path != "" {
						fmt.Fprintf(out, "  %s: %s\n", e.Path, e.Message)
					} else {
						fmt.Fprintf(out, "  %s\n", e.Message)
					}
				}
			}); perr != nil {
				return perr
			}
			if !result.Valid {
				return fmt.Errorf("settings file %s is invalid", path)
			}
			return nil
		},
	}
}
