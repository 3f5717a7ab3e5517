package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/profile"
)

func createAwaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "await <name> <tx-hash>",
		Short: "Wait until a transaction has the confirmations its network requires",
		Long: `Poll a network until a broadcast transaction has the number of
confirmations its profile asks for.

The network's polling_interval sets the poll rate. The wait fails once
timeout_blocks blocks (50 when unset) pass without a receipt, or when the
transaction reverted.

EXAMPLES:
  netprofile await polygon 0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060
`,
		Args: cobra.ExactArgs(2),
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
			return runAwait(ctx, cmd.OutOrStdout(), n, args[1])
		},
	}
}

func runAwait(ctx context.Context, w io.Writer, n profile.Network, txHash string) error {
	provider, err := newChain().Connect(ctx, n, chains.ConnectOptions{WithoutWallet: true})
	if err != nil {
		return err
	}
	defer provider.Close()

	receipt, err := provider.AwaitConfirmations(ctx, txHash)
	if err != nil {
		return err
	}
	return render(w, receipt, func(w io.Writer) error {
		fmt.Fprintf(w, "%s confirmed in block %d (%d confirmations)\n", receipt.TxHash, receipt.BlockNumber, receipt.Confirmations)
		return nil
	})
}
