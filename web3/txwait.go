package web3

import (
	"context"
	"errors"
	"fmt"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vocdoni/davinci-sdk/log"
)

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
	TxStatusReverted  TxStatus = "reverted"
)

// Terminal reports whether no further updates follow this status.
func (s TxStatus) Terminal() bool {
	return s != TxStatusPending
}

// TxUpdate is one lifecycle update of a tracked transaction. Err is set only
// when Status is failed.
type TxUpdate struct {
	Hash   common.Hash
	Status TxStatus
	Err    error
}

// txPollInterval is the receipt polling period of WaitTx.
const txPollInterval = time.Second

// CheckTxStatus checks the status of a transaction given its hash.
// Returns true if the transaction was successful, false otherwise.
func (c *Contracts) CheckTxStatus(ctx context.Context, txHash common.Hash) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	receipt, err := c.cli.TransactionReceipt(ctx, txHash)
	if err != nil {
		return false, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt.Status == gethtypes.ReceiptStatusSuccessful, nil
}

// WaitTx follows a submitted transaction until it is mined, emitting one
// update per lifecycle change: pending immediately, then completed or
// reverted once the receipt is available, or failed when the context ends
// first. The channel is closed after the terminal update.
func (c *Contracts) WaitTx(ctx context.Context, txHash common.Hash) <-chan TxUpdate {
	updates := make(chan TxUpdate, 4)
	go func() {
		defer close(updates)
		updates <- TxUpdate{Hash: txHash, Status: TxStatusPending}
		ticker := time.NewTicker(txPollInterval)
		defer ticker.Stop()
		for {
			receipt, err := c.receipt(ctx, txHash)
			switch {
			case err == nil && receipt.Status == gethtypes.ReceiptStatusSuccessful:
				updates <- TxUpdate{Hash: txHash, Status: TxStatusCompleted}
				return
			case err == nil:
				updates <- TxUpdate{Hash: txHash, Status: TxStatusReverted}
				return
			case errors.Is(err, goethereum.NotFound):
				// not mined yet, keep polling
			case ctx.Err() != nil:
				updates <- TxUpdate{Hash: txHash, Status: TxStatusFailed, Err: ctx.Err()}
				return
			default:
				// transient transport error, keep polling
				log.Debugw("failed to get transaction receipt",
					"tx", txHash.Hex(),
					"error", err,
				)
			}
			select {
			case <-ctx.Done():
				updates <- TxUpdate{Hash: txHash, Status: TxStatusFailed, Err: ctx.Err()}
				return
			case <-ticker.C:
			}
		}
	}()
	return updates
}

func (c *Contracts) receipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	return c.cli.TransactionReceipt(ctx, txHash)
}
