package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/chains/evm"
	"github.com/pendergraft/netprofile/internal/profile"
)

// newChain is swapped out by tests.
var newChain = func() chains.Chain { return evm.NewChain() }

func createProbeCmd() *cobra.Command {
	var withAccounts bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe <name>",
		Short: "Connect to a network and check it matches its profile",
		Long: `Connect to a network, read its network id, chain id, head block and gas
price, and check the network id against the profile.

With --accounts the wallet is derived from the mnemonic and its addresses
are listed. When the mnemonic variable is unset you are prompted for it;
the phrase is used once and never stored.

EXAMPLES:
  netprofile probe development
  netprofile probe sepolia --accounts
  netprofile probe polygon -o json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := loadDocument("")
			if err != nil {
				return err
			}
			n, err := lookupNetwork(doc, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return runProbe(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), n, withAccounts)
		},
	}

	cmd.Flags().BoolVar(&withAccounts, "accounts", false, "derive and list the wallet accounts")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "give up after this long")

	return cmd
}

func runProbe(ctx context.Context, w, prompt io.Writer, n profile.Network, withAccounts bool) error {
	opts := chains.ConnectOptions{WithoutWallet: !withAccounts}
	if withAccounts && n.Provider != nil && !n.Provider.Mnemonic.Resolved() {
		phrase, err := promptSecret(prompt, fmt.Sprintf("Mnemonic for %s (%s): ", n.Name, strings.Join(n.Provider.Mnemonic.Missing(), ", ")))
		if err != nil {
			return fmt.Errorf("reading mnemonic: %w", err)
		}
		opts.Mnemonic = phrase
	}

	provider, err := newChain().Connect(ctx, n, opts)
	if err != nil {
		return err
	}
	defer provider.Close()

	res, err := provider.Probe(ctx)
	if err != nil {
		return err
	}

	err = render(w, res, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "network\t%s\n", res.Network)
		fmt.Fprintf(tw, "endpoint\t%s\n", res.Endpoint)
		expected := res.ExpectedID
		if expected == "" {
			expected = "(not set)"
		}
		fmt.Fprintf(tw, "network id\t%d (expected %s)\n", res.RemoteNetworkID, expected)
		fmt.Fprintf(tw, "chain id\t%d\n", res.ChainID)
		fmt.Fprintf(tw, "head block\t%d\n", res.BlockNumber)
		source := "profile"
		if res.GasPriceFromNode {
			source = "node"
		}
		fmt.Fprintf(tw, "gas price\t%s wei (%s)\n", res.GasPrice, source)
		fmt.Fprintf(tw, "latency\t%s\n", res.Latency.Round(time.Millisecond))
		fmt.Fprintf(tw, "matches\t%s\n", yesNo(res.Matches))
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(res.Accounts) > 0 {
			fmt.Fprintln(w, "accounts:")
			for _, a := range res.Accounts {
				fmt.Fprintf(w, "  %d  %s  %s\n", a.Index, a.Address, a.Path)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return evm.CheckNetwork(res)
}
