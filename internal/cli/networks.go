package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/networks/domain"
	"github.com/pendergraft/netprofile/internal/profile"
)

func createNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "networks",
		Aliases: []string{"net"},
		Short:   "List and inspect network profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the networks of the document",
		Long: `List the networks declared in the document.

EXAMPLES:
  netprofile networks list
  netprofile networks list --config configs/netprofile.polygon.toml -o json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := localService()
			if err != nil {
				return err
			}
			list, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			return printNetworks(cmd.OutOrStdout(), list)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show one network profile",
		Long: `Show every setting of one network. Secrets are shown by their
${VARIABLE} template, never by value.

EXAMPLES:
  netprofile networks show sepolia
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := localService()
			if err != nil {
				return err
			}
			return runNetworksShow(cmd.Context(), cmd.OutOrStdout(), svc, args[0])
		},
	})

	return cmd
}

func printNetworks(w io.Writer, list []domain.Summary) error {
	return render(w, list, func(w io.Writer) error {
		if len(list) == 0 {
			fmt.Fprintln(w, "No networks declared")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tNETWORK ID\tENDPOINT\tREADY")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Kind, s.NetworkID, s.Endpoint, yesNo(s.Ready))
		}
		return tw.Flush()
	})
}

func runNetworksShow(ctx context.Context, w io.Writer, svc domain.Service, name string) error {
	d, err := svc.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %q", profile.ErrNetworkNotFound, name)
	}
	if err != nil {
		return err
	}
	return printDetail(w, d)
}

func printDetail(w io.Writer, d *domain.Detail) error {
	return render(w, d, func(w io.Writer) error {
		fmt.Fprintf(w, "%s (%s)\n", d.Name, d.Kind)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		row := func(k string, v any) {
			fmt.Fprintf(tw, "  %s\t%v\n", k, v)
		}
		if d.NetworkID != "" {
			row("network_id", d.NetworkID)
		}
		row("endpoint", d.Endpoint)
		if p := d.Provider; p != nil {
			row("mnemonic", p.Mnemonic)
			row("derivation_path", p.DerivationPath)
			row("address_index", p.AddressIndex)
			row("num_addresses", p.NumAddresses)
			if p.PollingInterval > 0 {
				row("polling_interval", p.PollingInterval)
			}
		}
		if d.Confirmations > 0 {
			row("confirmations", d.Confirmations)
		}
		if d.TimeoutBlocks > 0 {
			row("timeout_blocks", d.TimeoutBlocks)
		}
		if d.SkipDryRun {
			row("skip_dry_run", true)
		}
		if d.GasPrice > 0 {
			row("gas_price", d.GasPrice)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if len(d.Variables) > 0 {
			fmt.Fprintln(w, "  variables:")
			for _, v := range d.Variables {
				state := "set"
				if !v.Set {
					state = "unset"
				}
				fmt.Fprintf(w, "    %s (%s)\n", v.Name, state)
			}
		}
		for _, issue := range d.Issues {
			fmt.Fprintf(w, "  %s: %s %s\n", issue.Severity, issue.Field, issue.Message)
		}
		return nil
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
