package tests

import (
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/gabrielajasnosz/subscriptions-contract/contracts/subscription/subscriptionconst"
	rpcsub "github.com/gabrielajasnosz/subscriptions-contract/rpc/subscription"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm"
	"github.com/nspcc-dev/neo-go/pkg/vm/emit"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const subscriptionPath = "../contracts/subscription"

const (
	testFee       = 1_0000_0000
	testEmail     = "test@example.com"
	testFirstName = "John"
	testLastName  = "Doe"
)

func iteratorToArray(iter *storage.Iterator) []stackitem.Item {
	stackItems := make([]stackitem.Item, 0)
	for iter.Next() {
		stackItems = append(stackItems, iter.Value())
	}
	return stackItems
}

func newExecutor(t *testing.T) *neotest.Executor {
	bc, acc := chain.NewSingle(t)
	return neotest.NewExecutor(t, bc, acc, acc)
}

// subscriptionEnv is a chain with Subscription contract deployed by the
// committee and owned by a separate account.
type subscriptionEnv struct {
	e        *neotest.Executor
	contract *neotest.Contract
	owner    neotest.Signer
	ownerInv *neotest.ContractInvoker
}

func compileSubscription(t *testing.T, e *neotest.Executor) *neotest.Contract {
	return neotest.CompileFile(t, e.CommitteeHash, subscriptionPath, path.Join(subscriptionPath, "config.yml"))
}

func newSubscriptionEnv(t *testing.T, fee int64, rejectZeroFee bool) *subscriptionEnv {
	e := newExecutor(t)
	c := compileSubscription(t, e)
	owner := e.NewAccount(t)

	e.DeployContract(t, c, []any{owner.ScriptHash(), fee, rejectZeroFee})

	return &subscriptionEnv{
		e:        e,
		contract: c,
		owner:    owner,
		ownerInv: e.NewInvoker(c.Hash, owner),
	}
}

func (s *subscriptionEnv) hash() util.Uint160 {
	return s.contract.Hash
}

func (s *subscriptionEnv) invoker(signer neotest.Signer) *neotest.ContractInvoker {
	return s.e.NewInvoker(s.contract.Hash, signer)
}

func (s *subscriptionEnv) gas(t *testing.T, signer neotest.Signer) *neotest.ContractInvoker {
	return s.e.NewInvoker(s.e.NativeHash(t, nativenames.Gas), signer)
}

func subscribeData(email, firstName, lastName string) []any {
	return []any{subscriptionconst.SubscribeAction, email, firstName, lastName}
}

func (s *subscriptionEnv) subscribe(t *testing.T, signer neotest.Signer, amount int64, email, firstName, lastName string) util.Uint256 {
	return s.gas(t, signer).Invoke(t, true, "transfer",
		signer.ScriptHash(), s.hash(), amount, subscribeData(email, firstName, lastName))
}

func (s *subscriptionEnv) subscribeFail(t *testing.T, signer neotest.Signer, msg string, amount int64, email, firstName, lastName string) {
	s.gas(t, signer).InvokeFail(t, msg, "transfer",
		signer.ScriptHash(), s.hash(), amount, subscribeData(email, firstName, lastName))
}

func (s *subscriptionEnv) pay(t *testing.T, signer neotest.Signer, amount int64) util.Uint256 {
	return s.gas(t, signer).Invoke(t, true, "transfer",
		signer.ScriptHash(), s.hash(), amount, []any{subscriptionconst.PaymentAction})
}

func (s *subscriptionEnv) payFail(t *testing.T, signer neotest.Signer, msg string, amount int64) {
	s.gas(t, signer).InvokeFail(t, msg, "transfer",
		signer.ScriptHash(), s.hash(), amount, []any{subscriptionconst.PaymentAction})
}

func (s *subscriptionEnv) subscriber(t *testing.T, account util.Uint160) *rpcsub.Subscriber {
	stack, err := testInvoke(t, s.ownerInv, "checkSubscription", account)
	require.NoError(t, err)

	res := new(rpcsub.Subscriber)
	require.NoError(t, res.FromStackItem(stack.Pop().Item()))
	return res
}

func (s *subscriptionEnv) allSubscribers(t *testing.T) []*rpcsub.Subscriber {
	stack, err := testInvoke(t, s.ownerInv, "getAllSubscribers")
	require.NoError(t, err)

	items, ok := stack.Pop().Item().Value().([]stackitem.Item)
	require.True(t, ok)

	res := make([]*rpcsub.Subscriber, len(items))
	for i := range items {
		res[i] = new(rpcsub.Subscriber)
		require.NoError(t, res[i].FromStackItem(items[i]))
	}
	return res
}

func (s *subscriptionEnv) balance(t *testing.T) int64 {
	return testInvokeInt(t, s.ownerInv, "balance")
}

func (s *subscriptionEnv) gasBalance(t *testing.T, account util.Uint160) int64 {
	return testInvokeInt(t, s.gas(t, s.owner), "balanceOf", account)
}

// testInvoke calls method in a test VM with the invoker signers attached,
// so witness checks see them.
func testInvoke(t *testing.T, inv *neotest.ContractInvoker, method string, args ...any) (*vm.Stack, error) {
	w := io.NewBufBinWriter()
	emit.AppCall(w.BinWriter, inv.Hash, method, callflag.All, args...)
	require.NoError(t, w.Err)

	return inv.TestInvokeScript(t, w.Bytes(), inv.Signers)
}

func testInvokeInt(t *testing.T, inv *neotest.ContractInvoker, method string, args ...any) int64 {
	stack, err := testInvoke(t, inv, method, args...)
	require.NoError(t, err)

	v, err := stack.Pop().Item().TryInteger()
	require.NoError(t, err)
	return v.Int64()
}

func testInvokeBool(t *testing.T, inv *neotest.ContractInvoker, method string, args ...any) bool {
	stack, err := testInvoke(t, inv, method, args...)
	require.NoError(t, err)

	v, err := stack.Pop().Item().TryBool()
	require.NoError(t, err)
	return v
}

func applicationLog(t *testing.T, e *neotest.Executor, h util.Uint256) *result.ApplicationLog {
	aer := e.GetTxExecResult(t, h)
	return &result.ApplicationLog{Executions: []state.Execution{aer.Execution}}
}

// topSeconds returns timestamp of the last accepted block in seconds.
func topSeconds(t *testing.T, e *neotest.Executor) int64 {
	return int64(e.TopBlock(t).Timestamp / 1000)
}

// advanceTime adds an empty block shifted by d from the current top block.
func advanceTime(t *testing.T, e *neotest.Executor, d time.Duration) {
	b := e.NewUnsignedBlock(t)
	b.Timestamp += uint64(d.Milliseconds())
	require.NoError(t, e.Chain.AddBlock(e.SignBlock(b)))
}

// setTime adds an empty block with the given timestamp in milliseconds.
func setTime(t *testing.T, e *neotest.Executor, ms uint64) {
	b := e.NewUnsignedBlock(t)
	b.Timestamp = ms
	require.NoError(t, e.Chain.AddBlock(e.SignBlock(b)))
}

func mustJSON(t *testing.T, v any) []byte {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
