package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/gabrielajasnosz/subscriptions-contract/common"
	"github.com/gabrielajasnosz/subscriptions-contract/contracts"
	rpcsub "github.com/gabrielajasnosz/subscriptions-contract/rpc/subscription"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the contract deployment.
type Blockchain interface {
	// GetContractStateByHash returns network state of the smart contract by its
	// address. It returns an error if the contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Actor composes, signs and sends transactions on behalf of the local account.
type Actor interface {
	rpcsub.Actor

	// Wait waits until transaction with the given hash is accepted to the chain
	// or ValidUntilBlock passes. Error is passed through if non-nil.
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Prm groups all parameters of the Subscription contract deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	Blockchain Blockchain

	// Transaction sender. On update it must be the contract owner.
	Actor Actor

	Contract contracts.Contract

	// Address of already deployed contract to update. If zero, the contract
	// is deployed from Actor's account unless it's already there.
	Address util.Uint160

	// Contract owner set on deployment.
	Owner util.Uint160
	// Initial subscription fee.
	Fee *big.Int
	// Forbids zero subscription fee.
	RejectZeroFee bool
}

var (
	errNotOwner        = errors.New("local account is not the contract owner")
	errMissingOwner    = errors.New("contract owner is not specified")
	errTxFaulted       = errors.New("transaction faulted")
	errMissingContract = errors.New("contract to update is not found")
)

// Deploy deploys Subscription contract from the Prm.Contract artifacts or, if
// Prm.Address is set, updates the contract deployed there when its version is
// lower than the local one. It returns the contract address.
//
// Deploy waits for every sent transaction to be accepted and aborts by context.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}

	if !prm.Address.Equals(util.Uint160{}) {
		return prm.Address, update(ctx, prm)
	}

	if prm.Owner.Equals(util.Uint160{}) {
		return util.Uint160{}, errMissingOwner
	}

	addr := state.CreateContractHash(prm.Actor.Sender(), prm.Contract.NEF.Checksum, prm.Contract.Manifest.Name)
	l := prm.Logger.With(zap.Stringer("address", addr))

	if _, err := prm.Blockchain.GetContractStateByHash(addr); err == nil {
		l.Info("contract is already deployed, skip")
		return addr, nil
	}

	fee := prm.Fee
	if fee == nil {
		fee = new(big.Int)
	}

	nefBytes, manifestBytes, err := encodeContract(prm.Contract)
	if err != nil {
		return util.Uint160{}, err
	}

	l.Info("deploying contract...", zap.Stringer("owner", prm.Owner), zap.Stringer("fee", fee))

	err = await(ctx, prm.Actor, func() (util.Uint256, uint32, error) {
		return prm.Actor.SendCall(management.Hash, "deploy", nefBytes, manifestBytes,
			[]any{prm.Owner, fee, prm.RejectZeroFee})
	})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("deploy contract: %w", err)
	}

	l.Info("contract successfully deployed")

	return addr, nil
}

func update(ctx context.Context, prm Prm) error {
	l := prm.Logger.With(zap.Stringer("address", prm.Address))

	if _, err := prm.Blockchain.GetContractStateByHash(prm.Address); err != nil {
		return fmt.Errorf("%w: %w", errMissingContract, err)
	}

	c := rpcsub.New(prm.Actor, prm.Address)

	v, err := c.Version()
	if err != nil {
		return fmt.Errorf("get version of the deployed contract: %w", err)
	}

	if v.Cmp(big.NewInt(common.Version)) >= 0 {
		l.Info("contract is up to date, skip", zap.Stringer("version", v))
		return nil
	}

	isOwner, err := c.IsOwner(prm.Actor.Sender())
	if err != nil {
		return fmt.Errorf("check contract owner: %w", err)
	}

	if !isOwner {
		return errNotOwner
	}

	nefBytes, manifestBytes, err := encodeContract(prm.Contract)
	if err != nil {
		return err
	}

	l.Info("updating contract...", zap.Stringer("from", v), zap.Int("to", common.Version))

	err = await(ctx, prm.Actor, func() (util.Uint256, uint32, error) {
		return c.Update(nefBytes, manifestBytes, nil)
	})
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}

	l.Info("contract successfully updated")

	return nil
}

func encodeContract(c contracts.Contract) ([]byte, []byte, error) {
	nefBytes, err := c.NEF.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("encode NEF: %w", err)
	}

	manifestBytes, err := json.Marshal(c.Manifest)
	if err != nil {
		return nil, nil, fmt.Errorf("encode manifest: %w", err)
	}

	return nefBytes, manifestBytes, nil
}

// await sends transaction and waits for its successful execution.
func await(ctx context.Context, act Actor, send func() (util.Uint256, uint32, error)) error {
	type waitResult struct {
		res *state.AppExecResult
		err error
	}

	h, vub, err := send()

	ch := make(chan waitResult, 1)
	go func() {
		res, err := act.Wait(h, vub, err)
		ch <- waitResult{res, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return r.err
		}

		if r.res.VMState != vmstate.Halt {
			return fmt.Errorf("%w: %s", errTxFaulted, r.res.FaultException)
		}

		return nil
	}
}
