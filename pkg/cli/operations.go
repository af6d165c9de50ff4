package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapconnect/pkg/cli/internal/output"
)

// OperationOutput is one row of the operations listing.
type OperationOutput struct {
	Name      string `json:"name"`
	Service   string `json:"service"`
	Port      string `json:"port"`
	Operation string `json:"operation"`
	Style     string `json:"style,omitempty"`
	Endpoint  string `json:"endpoint"`
}

func newOperationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "operations",
		Aliases: []string{"ops"},
		Short:   "List the operations exposed by the service",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.newSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			table, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([]OperationOutput, 0, table.Len())
			for _, b := range table.Bindings() {
				rows = append(rows, OperationOutput{
					Name:      b.Name,
					Service:   b.Service,
					Port:      b.Port,
					Operation: b.Operation.Name,
					Style:     string(b.Operation.Style),
					Endpoint:  b.Endpoint,
				})
			}

			out := cmd.OutOrStdout()
			return opts.printResult(out, rows, func() {
				w := output.Table(out)
				fmt.Fprintln(w, "NAME\tSERVICE\tPORT\tOPERATION\tSTYLE")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Service, r.Port, r.Operation, r.Style)
				}
				_ = w.Flush()
			})
		},
	}
}
