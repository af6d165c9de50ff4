package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapconnect/pkg/cli/internal/output"
	"github.com/getmockd/soapconnect/pkg/cli/internal/parse"
	"github.com/getmockd/soapconnect/pkg/soap"
)

// XMLOutput is the --json form of to-xml.
type XMLOutput struct {
	Operation string `json:"operation"`
	XML       string `json:"xml"`
}

func newToXMLCmd(opts *rootOptions) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "to-xml <operation> [json | @file | -]",
		Short: "Encode a JSON payload as the operation's request body",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			xml, err := table.JSONToXML(args[0], input)
			if err != nil {
				return err
			}
			if pretty && xml != "" {
				xml = soap.PrettyPrint([]byte(xml))
			}

			out := cmd.OutOrStdout()
			return opts.printResult(out, XMLOutput{Operation: args[0], XML: xml}, func() {
				fmt.Fprintln(out, xml)
			})
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the XML")
	return cmd
}

func newToJSONCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "to-json <operation> [xml | @file | -]",
		Short: "Decode a response envelope into the operation's JSON payload",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var xml []byte
			if len(args) == 2 {
				var err error
				if xml, err = parse.Payload(args[1], cmd.InOrStdin()); err != nil {
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
			result, err := table.XMLToJSON(args[0], string(xml))
			if err != nil {
				return err
			}
			return output.JSON(cmd.OutOrStdout(), result)
		},
	}
}
