package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proxypulse/proxypulse/pkg/template"
)

func createTemplateCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "template <type> <name>",
		Short: "Generate an endpoint template",
		Long: `Generate a ready-to-edit endpoint payload for a common setup.
Types: http, https, nginx, squid.

Examples:
  proxypulse template squid edge-proxy
  proxypulse template nginx frontdoor --format=toml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := template.NewGenerator()
			switch format {
			case "json":
				data, err := gen.GenerateJSON(template.TemplateType(args[0]), args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case "toml":
				stanza, err := gen.GenerateTOML(template.TemplateType(args[0]), args[1])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), stanza)
			default:
				return fmt.Errorf("unknown format %q (supported: json, toml)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or toml")
	return cmd
}
