package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/networks/domain"
)

func createEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables the document relies on",
		Long: `List every environment variable the document references or documents,
whether it is set, and which networks use it. Values are never printed.

EXAMPLES:
  netprofile env
  netprofile env --dotenv .env.local,.env
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := localService()
			if err != nil {
				return err
			}
			report, err := svc.Environment(cmd.Context())
			if err != nil {
				return err
			}
			return printEnv(cmd.OutOrStdout(), report)
		},
	}
}

func printEnv(w io.Writer, report *domain.EnvReport) error {
	return render(w, report, func(w io.Writer) error {
		if len(report.Variables) == 0 {
			fmt.Fprintln(w, "No variables referenced")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VARIABLE\tSET\tDOCUMENTED\tNETWORKS\tDESCRIPTION")
		for _, v := range report.Variables {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Name, yesNo(v.Set), yesNo(v.Documented), strings.Join(v.Networks, ","), v.Description)
		}
		return tw.Flush()
	})
}
