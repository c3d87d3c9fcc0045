package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eislager/eislager-pro/sdk"
)

func (a *app) fallbackCommand() *cobra.Command {
	var method string
	var preview bool

	cmd := &cobra.Command{
		Use:   "fallback PATH",
		Short: "Show which fallback data a request would receive during an outage",
		Example: `  eisctl fallback /api/v1/inventory/flavors?limit=3 --preview
  eisctl fallback /api/v1/auth/login --method POST`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method = strings.ToUpper(method)
			resolver := sdk.DefaultFallbackResolver()
			w := cmd.OutOrStdout()

			if !preview {
				category := resolver.Category(method, args[0])
				if a.output == outputJSON {
					return writeJSON(w, map[string]string{"method": method, "path": args[0], "category": string(category)})
				}
				fmt.Fprintln(w, category)
				return nil
			}

			env, category := resolver.Resolve(method, args[0])
			if a.output != outputJSON {
				fmt.Fprintf(w, "category: %s\n", category)
			}
			return a.printEnvelope(w, env)
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method")
	cmd.Flags().BoolVar(&preview, "preview", false, "also print the synthesized envelope")
	return cmd
}
