package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	rpcsub "github.com/gabrielajasnosz/subscriptions-contract/rpc/subscription"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// GAS has 8 decimals.
const gasPrecision = 8

var (
	errMissingEndpoint = errors.New("missing Neo RPC endpoint")
	errMissingWallet   = errors.New("missing wallet path")
	errMissingContract = errors.New("missing contract address")
)

// parseAccount accepts Neo address or LE hex script hash.
func parseAccount(s string) (util.Uint160, error) {
	s = strings.TrimSpace(s)
	if h, err := address.StringToUint160(s); err == nil {
		return h, nil
	}

	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid account %q: neither address nor script hash", s)
	}

	return h, nil
}

// parseGAS parses decimal GAS amount into fractional units.
func parseGAS(s string) (*big.Int, error) {
	v, err := fixedn.FromString(strings.TrimSpace(s), gasPrecision)
	if err != nil {
		return nil, fmt.Errorf("invalid GAS amount %q: %w", s, err)
	}

	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative GAS amount %q", s)
	}

	return v, nil
}

func formatGAS(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return fixedn.ToString(v, gasPrecision)
}

func (a *app) contractHash() (util.Uint160, error) {
	if a.cfg.Contract == "" {
		return util.Uint160{}, errMissingContract
	}
	return parseAccount(a.cfg.Contract)
}

func (a *app) dial(ctx context.Context) (*rpcclient.Client, error) {
	if a.cfg.Endpoint == "" {
		return nil, errMissingEndpoint
	}

	c, err := rpcclient.New(ctx, a.cfg.Endpoint, rpcclient.Options{
		DialTimeout:    a.cfg.Timeout,
		RequestTimeout: a.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	if err := c.Init(); err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	return c, nil
}

// walletAccount returns configured wallet account without decrypting it.
func (a *app) walletAccount() (*wallet.Wallet, *wallet.Account, error) {
	if a.cfg.WalletPath == "" {
		return nil, nil, errMissingWallet
	}

	w, err := wallet.NewWalletFromFile(a.cfg.WalletPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open wallet: %w", err)
	}

	h := w.GetChangeAddress()
	if a.cfg.WalletAddress != "" {
		h, err = parseAccount(a.cfg.WalletAddress)
		if err != nil {
			return nil, nil, err
		}
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(h))
	}

	return w, acc, nil
}

func (a *app) password() (string, error) {
	if a.cfg.WalletPassword != "" {
		return a.cfg.WalletPassword, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("wallet password is not set, use %s_WALLET_PASSWORD", envPrefix)
	}

	fmt.Fprint(os.Stderr, "Enter account password > ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(pass), nil
}

// newActor dials RPC server and unlocks wallet account for signing.
func (a *app) newActor(ctx context.Context) (*rpcclient.Client, *actor.Actor, error) {
	w, acc, err := a.walletAccount()
	if err != nil {
		return nil, nil, err
	}

	pass, err := a.password()
	if err != nil {
		return nil, nil, err
	}

	if err := acc.Decrypt(pass, w.Scrypt); err != nil {
		return nil, nil, fmt.Errorf("decrypt account: %w", err)
	}

	c, err := a.dial(ctx)
	if err != nil {
		return nil, nil, err
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("init actor: %w", err)
	}

	return c, act, nil
}

// newReader dials RPC server for test invocations. If signer is set, calls
// are witnessed by it.
func (a *app) newReader(ctx context.Context, signer *util.Uint160) (*rpcclient.Client, *rpcsub.ContractReader, error) {
	h, err := a.contractHash()
	if err != nil {
		return nil, nil, err
	}

	c, err := a.dial(ctx)
	if err != nil {
		return nil, nil, err
	}

	var signers []transaction.Signer
	if signer != nil {
		signers = []transaction.Signer{{Account: *signer, Scopes: transaction.CalledByEntry}}
	}

	return c, rpcsub.NewReader(invoker.New(c, signers), h), nil
}

// await waits for the transaction acceptance and checks its execution.
func (a *app) await(act *actor.Actor, h util.Uint256, vub uint32, err error) error {
	res, err := act.Wait(h, vub, err)
	if err != nil {
		return fmt.Errorf("wait for transaction: %w", err)
	}

	if res.VMState != vmstate.Halt {
		return fmt.Errorf("transaction %s faulted: %s", h.StringLE(), res.FaultException)
	}

	a.log.Info("transaction accepted", zap.String("tx", h.StringLE()))

	return nil
}
