package evm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/validation"
)

// receipt holds the fields of eth_getTransactionReceipt that the
// confirmation policy needs.
type receipt struct {
	BlockNumber hexutil.Uint64  `json:"blockNumber"`
	Status      *hexutil.Uint64 `json:"status,omitempty"`
}

// AwaitConfirmations waits until the transaction has the profile's
// confirmations on top of its block. It polls every polling_interval and
// gives up with ErrTimeoutBlocks when timeout_blocks blocks pass without a
// receipt. A reverted transaction fails with ErrTransactionFailed.
func (p *Provider) AwaitConfirmations(ctx context.Context, txHash string) (*chains.Receipt, error) {
	if err := validation.ValidateTxHash(txHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTxHash, err)
	}
	hash := common.HexToHash(txHash)

	timeoutBlocks := uint64(DefaultTimeoutBlocks)
	if p.network.TimeoutBlocks > 0 {
		timeoutBlocks = uint64(p.network.TimeoutBlocks)
	}
	confirmations := uint64(0)
	if p.network.Confirmations > 0 {
		confirmations = uint64(p.network.Confirmations)
	}

	startBlock, err := p.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_blockNumber: %w", p.redact(err))
	}

	ticker := time.NewTicker(p.pollingInterval())
	defer ticker.Stop()

	for {
		var r *receipt
		if err := p.rpc.CallContext(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
			return nil, fmt.Errorf("eth_getTransactionReceipt: %w", p.redact(err))
		}
		head, err := p.eth.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("eth_blockNumber: %w", p.redact(err))
		}

		if r == nil {
			if head >= startBlock+timeoutBlocks {
				return nil, fmt.Errorf("%w: %s after %d blocks", ErrTimeoutBlocks, txHash, head-startBlock)
			}
		} else {
			if r.Status != nil && *r.Status == 0 {
				return nil, fmt.Errorf("%w: %s in block %d", ErrTransactionFailed, txHash, uint64(r.BlockNumber))
			}
			var have uint64
			if head > uint64(r.BlockNumber) {
				have = head - uint64(r.BlockNumber)
			}
			if have >= confirmations {
				return &chains.Receipt{
					TxHash:        hash.Hex(),
					BlockNumber:   uint64(r.BlockNumber),
					Confirmations: have,
					Status:        (*uint64)(r.Status),
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
