package web3

import (
	"context"
	"fmt"
	"math/big"
	"time"

	bind "github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	npbindings "github.com/vocdoni/davinci-contracts/golang-types"
	"github.com/vocdoni/davinci-sdk/types"
)

// CreateProcess creates a new process in the ProcessRegistry contract.
// It returns the process ID and the transaction hash.
func (c *Contracts) CreateProcess(ctx context.Context, process *types.Process) (types.HexBytes, common.Hash, error) {
	txOpts, err := c.authTransactOpts(ctx)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}

	// the contract derives the process ID from the creator address and its
	// nonce, so it is known before the creation transaction is mined
	callCtx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	pid, err := c.processes.GetNextProcessId(&bind.CallOpts{Context: callCtx}, c.AccountAddress())
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to get next process ID: %w", err)
	}

	p := process2ContractProcess(process)
	tx, err := c.processes.NewProcess(
		txOpts,
		p.Status,
		p.StartTime,
		p.Duration,
		p.BallotMode,
		p.Census,
		p.MetadataURI,
		p.EncryptionKey,
		p.LatestStateRoot,
	)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to create process: %w", err)
	}
	return pid[:], tx.Hash(), nil
}

// Process returns the process with the given ID from the ProcessRegistry
// contract.
func (c *Contracts) Process(ctx context.Context, processID types.HexBytes) (*types.Process, error) {
	var pid [32]byte
	copy(pid[:], processID)

	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()

	p, err := c.processes.GetProcess(&bind.CallOpts{Context: ctx}, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get process: %w", err)
	}

	process, err := contractProcess2Process(&registryProcess{
		Status:               p.Status,
		OrganizationId:       p.OrganizationId,
		EncryptionKey:        p.EncryptionKey,
		LatestStateRoot:      p.LatestStateRoot,
		StartTime:            p.StartTime,
		Duration:             p.Duration,
		MetadataURI:          p.MetadataURI,
		BallotMode:           p.BallotMode,
		Census:               p.Census,
		VoteCount:            p.VoteCount,
		VoteOverwrittenCount: p.VoteOverwriteCount,
		Result:               p.Result,
	})
	if err != nil {
		return nil, err
	}
	process.ID = processID
	return process, nil
}

// NextProcessID returns the process ID that the ProcessRegistry contract
// will assign to the next process created by the given address.
func (c *Contracts) NextProcessID(ctx context.Context, address common.Address) (types.HexBytes, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()

	pid, err := c.processes.GetNextProcessId(&bind.CallOpts{Context: ctx}, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get next process ID: %w", err)
	}
	return pid[:], nil
}

// SetProcessStatus updates the status of the process with the given ID. Only
// the process organization can change its status. It returns the transaction
// hash of the status change submission.
func (c *Contracts) SetProcessStatus(ctx context.Context, processID types.HexBytes, status types.ProcessStatus) (common.Hash, error) {
	txOpts, err := c.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	var pid [32]byte
	copy(pid[:], processID)
	tx, err := c.processes.SetProcessStatus(txOpts, pid, uint8(status))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to set process status: %w", err)
	}
	return tx.Hash(), nil
}

// registryProcess is a mirror of the on-chain process tuple constructed with
// the auto-generated bindings.
type registryProcess struct {
	Status               uint8
	OrganizationId       common.Address
	EncryptionKey        npbindings.IProcessRegistryEncryptionKey
	LatestStateRoot      *big.Int
	StartTime            *big.Int
	Duration             *big.Int
	MetadataURI          string
	BallotMode           npbindings.IProcessRegistryBallotMode
	Census               npbindings.IProcessRegistryCensus
	VoteCount            *big.Int
	VoteOverwrittenCount *big.Int
	Result               []*big.Int
}

func contractProcess2Process(p *registryProcess) (*types.Process, error) {
	mode := types.BallotMode{
		MaxCount:        p.BallotMode.NumFields,
		ForceUniqueness: p.BallotMode.UniqueValues,
		CostFromWeight:  p.BallotMode.CostFromWeight,
		CostExponent:    p.BallotMode.CostExponent,
		MaxValue:        (*types.BigInt)(p.BallotMode.MaxValue),
		MinValue:        (*types.BigInt)(p.BallotMode.MinValue),
		MaxTotalCost:    (*types.BigInt)(p.BallotMode.MaxValueSum),
		MinTotalCost:    (*types.BigInt)(p.BallotMode.MinValueSum),
	}
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ballot mode: %w", err)
	}

	censusOrigin := types.CensusOrigin(p.Census.CensusOrigin)
	if !censusOrigin.Valid() {
		return nil, fmt.Errorf("invalid census origin: %d", p.Census.CensusOrigin)
	}
	census := types.Census{
		CensusRoot:   p.Census.CensusRoot[:],
		CensusURI:    p.Census.CensusURI,
		CensusOrigin: censusOrigin,
	}

	results := make([]*types.BigInt, len(p.Result))
	for i, r := range p.Result {
		results[i] = (*types.BigInt)(r)
	}

	return &types.Process{
		Status:         types.ProcessStatus(p.Status),
		OrganizationId: p.OrganizationId,
		EncryptionKey: &types.EncryptionKey{
			X: (*types.BigInt)(p.EncryptionKey.X),
			Y: (*types.BigInt)(p.EncryptionKey.Y),
		},
		StateRoot:            (*types.BigInt)(p.LatestStateRoot),
		StartTime:            time.Unix(int64(p.StartTime.Uint64()), 0),
		Duration:             time.Duration(p.Duration.Uint64()) * time.Second,
		MetadataURI:          p.MetadataURI,
		BallotMode:           &mode,
		Census:               &census,
		VoteCount:            (*types.BigInt)(p.VoteCount),
		VoteOverwrittenCount: (*types.BigInt)(p.VoteOverwrittenCount),
		Result:               results,
	}, nil
}

func process2ContractProcess(p *types.Process) registryProcess {
	var prp registryProcess

	prp.Status = uint8(p.Status)
	prp.OrganizationId = p.OrganizationId
	prp.EncryptionKey = npbindings.IProcessRegistryEncryptionKey{
		X: p.EncryptionKey.X.MathBigInt(),
		Y: p.EncryptionKey.Y.MathBigInt(),
	}
	prp.LatestStateRoot = bigIntOrZero(p.StateRoot)
	prp.StartTime = big.NewInt(p.StartTime.Unix())
	prp.Duration = big.NewInt(int64(p.Duration.Seconds()))
	prp.MetadataURI = p.MetadataURI

	prp.BallotMode = npbindings.IProcessRegistryBallotMode{
		CostFromWeight: p.BallotMode.CostFromWeight,
		UniqueValues:   p.BallotMode.ForceUniqueness,
		NumFields:      p.BallotMode.MaxCount,
		CostExponent:   p.BallotMode.CostExponent,
		MaxValue:       p.BallotMode.MaxValue.MathBigInt(),
		MinValue:       p.BallotMode.MinValue.MathBigInt(),
		MaxValueSum:    p.BallotMode.MaxTotalCost.MathBigInt(),
		MinValueSum:    p.BallotMode.MinTotalCost.MathBigInt(),
	}

	copy(prp.Census.CensusRoot[:], p.Census.CensusRoot)
	prp.Census.CensusOrigin = uint8(p.Census.CensusOrigin)
	prp.Census.CensusURI = p.Census.CensusURI
	// the census size cap is not tracked on the client side
	prp.Census.MaxVotes = big.NewInt(0)

	prp.VoteCount = bigIntOrZero(p.VoteCount)
	prp.VoteOverwrittenCount = bigIntOrZero(p.VoteOverwrittenCount)
	if p.Result != nil {
		prp.Result = make([]*big.Int, len(p.Result))
		for i, r := range p.Result {
			prp.Result[i] = r.MathBigInt()
		}
	} else {
		prp.Result = []*big.Int{} // Ensure it's not nil
	}
	return prp
}

func bigIntOrZero(v *types.BigInt) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v.MathBigInt()
}
