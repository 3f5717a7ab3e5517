package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/chains/evm"
	"github.com/pendergraft/netprofile/internal/profile"
	"github.com/pendergraft/netprofile/pkg/client"
)

func createRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query a netprofile server",
		Long: `Query the document served by a netprofile server.

The server is taken from --server, $NETPROFILE_SERVER or ~/.netprofile/config.yaml.
Commands that change or contact anything send the API key from --api-key,
$NETPROFILE_API_KEY or the saved credentials.`,
	}

	cmd.AddCommand(createRemoteInfoCmd())
	cmd.AddCommand(createRemoteNetworksCmd())
	cmd.AddCommand(createRemoteEnvCmd())
	cmd.AddCommand(createRemoteReportCmd())
	cmd.AddCommand(createRemoteValidateCmd())
	cmd.AddCommand(createRemoteProbeCmd())

	return cmd
}

func newClient() *client.Client {
	return client.New(getServer(), getAPIKey())
}

func createRemoteInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show which document the server serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := newClient().Info(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), info, func(w io.Writer) error {
				fmt.Fprintf(w, "source:    %s (%s)\n", info.Source, info.Format)
				fmt.Fprintf(w, "revision:  %s\n", info.Revision)
				fmt.Fprintf(w, "solc:      %s\n", info.Compiler)
				fmt.Fprintf(w, "networks:  %d\n", info.Networks)
				return nil
			})
		},
	}
}

func createRemoteNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks [name]",
		Short: "List the served networks, or show one",
		Long: `List the networks the server serves, or show one of them.

EXAMPLES:
  netprofile remote networks
  netprofile remote networks sepolia -o yaml
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			if len(args) == 1 {
				return runRemoteNetwork(cmd.Context(), cmd.OutOrStdout(), c, args[0])
			}
			list, err := c.ListNetworks(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func(w io.Writer) error {
				fmt.Fprintf(w, "%s (revision %s)\n", list.Document.Source, list.Document.Revision)
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tKIND\tNETWORK ID\tENDPOINT\tREADY")
				for _, s := range list.Data {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Kind, s.NetworkID, s.Endpoint, yesNo(s.Ready))
				}
				return tw.Flush()
			})
		},
	}
}

func runRemoteNetwork(ctx context.Context, w io.Writer, c *client.Client, name string) error {
	n, err := c.GetNetwork(ctx, name)
	if client.IsNotFound(err) {
		return fmt.Errorf("%w: %q on %s", profile.ErrNetworkNotFound, name, getServer())
	}
	if err != nil {
		return err
	}
	return render(w, n, func(w io.Writer) error {
		fmt.Fprintf(w, "%s (%s)\n", n.Name, n.Kind)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if n.NetworkID != "" {
			fmt.Fprintf(tw, "  network_id\t%s\n", n.NetworkID)
		}
		fmt.Fprintf(tw, "  endpoint\t%s\n", n.Endpoint)
		if p := n.Provider; p != nil {
			fmt.Fprintf(tw, "  mnemonic\t%s\n", p.Mnemonic)
			fmt.Fprintf(tw, "  derivation_path\t%s\n", p.DerivationPath)
			fmt.Fprintf(tw, "  num_addresses\t%d\n", p.NumAddresses)
		}
		if n.Confirmations > 0 {
			fmt.Fprintf(tw, "  confirmations\t%d\n", n.Confirmations)
		}
		fmt.Fprintf(tw, "  ready\t%s\n", yesNo(n.Ready))
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, issue := range n.Issues {
			fmt.Fprintf(w, "  %s: %s %s\n", issue.Severity, issue.Field, issue.Message)
		}
		return nil
	})
}

func createRemoteEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the variables the served document relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := newClient().Environment(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), vars, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "VARIABLE\tSET ON SERVER\tDOCUMENTED")
				for _, v := range vars {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, yesNo(v.Set), yesNo(v.Documented))
				}
				return tw.Flush()
			})
		},
	}
}

func createRemoteReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the validation report of the served document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := newClient().Report(cmd.Context())
			if err != nil {
				return err
			}
			return printRemoteReport(cmd.OutOrStdout(), report)
		},
	}
}

func createRemoteValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Have the server validate a local document",
		Long: `Upload a document for validation. The server checks it without
resolving any of its secrets, so nothing from your environment is sent.

EXAMPLES:
  netprofile remote validate configs/netprofile.polygon.toml
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoteValidate(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0])
		},
	}
}

func runRemoteValidate(ctx context.Context, w io.Writer, c *client.Client, path string) error {
	format, err := profile.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	report, err := c.Validate(ctx, data, string(format))
	if err != nil {
		return err
	}
	if report.Source == "" {
		report.Source = path
	}
	if err := printRemoteReport(w, report); err != nil {
		return err
	}
	if !report.Valid {
		return errValidationFailed
	}
	return nil
}

func printRemoteReport(w io.Writer, r *client.Report) error {
	return render(w, r, func(w io.Writer) error {
		status := "ok"
		if !r.Valid {
			status = "invalid"
		}
		fmt.Fprintf(w, "%s: %s (%d errors, %d warnings)\n", r.Source, status, r.Errors, r.Warnings)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  %s\n", profile.Issue{
				Severity: profile.Severity(issue.Severity),
				Network:  issue.Network,
				Field:    issue.Field,
				Message:  issue.Message,
			})
		}
		return nil
	})
}

func createRemoteProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <name>",
		Short: "Have the server probe one of its networks",
		Long: `Ask the server to connect to a network with its own environment and
report what it finds. Wallet accounts are never listed remotely.

EXAMPLES:
  netprofile remote probe sepolia
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoteProbe(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0])
		},
	}
}

func runRemoteProbe(ctx context.Context, w io.Writer, c *client.Client, name string) error {
	res, err := c.Probe(ctx, name)
	if client.IsNotFound(err) {
		return fmt.Errorf("%w: %q on %s", profile.ErrNetworkNotFound, name, getServer())
	}
	if err != nil {
		return err
	}
	err = render(w, res, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "network\t%s\n", res.Network)
		fmt.Fprintf(tw, "endpoint\t%s\n", res.Endpoint)
		fmt.Fprintf(tw, "network id\t%d (expected %s)\n", res.RemoteNetworkID, res.ExpectedID)
		fmt.Fprintf(tw, "chain id\t%d\n", res.ChainID)
		fmt.Fprintf(tw, "head block\t%d\n", res.BlockNumber)
		fmt.Fprintf(tw, "gas price\t%s wei\n", res.GasPrice)
		fmt.Fprintf(tw, "latency\t%s\n", res.Latency.Round(time.Millisecond))
		fmt.Fprintf(tw, "matches\t%s\n", yesNo(res.Matches))
		return tw.Flush()
	})
	if err != nil {
		return err
	}
	if !res.Matches {
		return fmt.Errorf("%w: %s reported %d, expected %s", evm.ErrNetworkMismatch, res.Network, res.RemoteNetworkID, res.ExpectedID)
	}
	return nil
}
