package tests

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/gabrielajasnosz/subscriptions-contract/common"
	"github.com/gabrielajasnosz/subscriptions-contract/contracts/subscription/subscriptionconst"
	rpcsub "github.com/gabrielajasnosz/subscriptions-contract/rpc/subscription"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionDeploy(t *testing.T) {
	t.Run("getters", func(t *testing.T) {
		s := newSubscriptionEnv(t, testFee, false)
		user := s.e.NewAccount(t)
		inv := s.invoker(user)

		require.Equal(t, int64(testFee), testInvokeInt(t, inv, "subscriptionFee"))
		require.Equal(t, int64(0), testInvokeInt(t, inv, "balance"))
		require.Equal(t, int64(common.Version), testInvokeInt(t, inv, "version"))
		require.True(t, testInvokeBool(t, inv, "isOwner", s.owner.ScriptHash()))
		require.False(t, testInvokeBool(t, inv, "isOwner", user.ScriptHash()))
		require.False(t, testInvokeBool(t, inv, "isDestroyed"))

		stack, err := testInvoke(t, inv, "owner")
		require.NoError(t, err)
		owner, err := stack.Pop().Item().TryBytes()
		require.NoError(t, err)
		require.Equal(t, s.owner.ScriptHash().BytesBE(), owner)
	})

	t.Run("invalid fee", func(t *testing.T) {
		e := newExecutor(t)
		c := compileSubscription(t, e)
		owner := e.NewAccount(t)

		e.DeployContractCheckFAULT(t, c, []any{owner.ScriptHash(), int64(-1), false}, subscriptionconst.ErrInvalidFee)
		e.DeployContractCheckFAULT(t, c, []any{owner.ScriptHash(), int64(0), true}, subscriptionconst.ErrInvalidFee)
		e.DeployContractCheckFAULT(t, c, []any{[]byte{1, 2, 3}, int64(testFee), false}, "incorrect owner")
	})

	t.Run("zero fee allowed", func(t *testing.T) {
		s := newSubscriptionEnv(t, 0, false)
		user := s.e.NewAccount(t)

		s.subscribe(t, user, 0, testEmail, testFirstName, testLastName)
		require.True(t, s.subscriber(t, user.ScriptHash()).IsSubscribed)
		require.Zero(t, s.balance(t))
	})
}

func TestSubscribe(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)

	h := s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)
	due := topSeconds(t, s.e) + subscriptionconst.Period

	events, err := rpcsub.SubscribedEventsFromApplicationLog(applicationLog(t, s.e, h))
	require.NoError(t, err)
	require.Equal(t, []*rpcsub.SubscribedEvent{{
		Account:         user.ScriptHash(),
		SubscriptionDue: big.NewInt(due),
		Email:           testEmail,
		FirstName:       testFirstName,
		LastName:        testLastName,
	}}, events)

	sub := s.subscriber(t, user.ScriptHash())
	require.True(t, sub.IsSubscribed)
	require.Equal(t, due, sub.SubscriptionDue.Int64())
	require.Equal(t, testEmail, sub.Email)
	require.Equal(t, testFirstName, sub.FirstName)
	require.Equal(t, testLastName, sub.LastName)

	require.True(t, testInvokeBool(t, s.invoker(user), "isSubscribedUser", user.ScriptHash()))
	require.Equal(t, int64(testFee), s.balance(t))
	require.Equal(t, int64(testFee), s.gasBalance(t, s.hash()))

	s.subscribeFail(t, user, subscriptionconst.ErrAlreadySubscribed, testFee, testEmail, testFirstName, testLastName)
	require.Equal(t, int64(testFee), s.balance(t))
}

func TestSubscribeValidation(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)

	longEmail := strings.Repeat("a", subscriptionconst.MaxEmailLength-len("@b.c")+1) + "@b.c"
	maxEmail := strings.Repeat("a", subscriptionconst.MaxEmailLength-len("@b.c")) + "@b.c"
	longName := strings.Repeat("n", subscriptionconst.MaxNameLength+1)
	maxName := strings.Repeat("n", subscriptionconst.MaxNameLength)

	testCases := []struct {
		name   string
		amount int64
		email  string
		first  string
		last   string
		msg    string
	}{
		{"empty email", testFee, "", testFirstName, testLastName, subscriptionconst.ErrInvalidEmailLength},
		{"long email", testFee, longEmail, testFirstName, testLastName, subscriptionconst.ErrInvalidEmailLength},
		{"empty first name", testFee, testEmail, "", testLastName, subscriptionconst.ErrInvalidFirstNameLength},
		{"long first name", testFee, testEmail, longName, testLastName, subscriptionconst.ErrInvalidFirstNameLength},
		{"empty last name", testFee, testEmail, testFirstName, "", subscriptionconst.ErrInvalidLastNameLength},
		{"long last name", testFee, testEmail, testFirstName, longName, subscriptionconst.ErrInvalidLastNameLength},
		{"no at sign", testFee, "test.example.com", testFirstName, testLastName, subscriptionconst.ErrInvalidEmailFormat},
		{"empty local part", testFee, "@example.com", testFirstName, testLastName, subscriptionconst.ErrInvalidEmailFormat},
		{"empty domain", testFee, "test@", testFirstName, testLastName, subscriptionconst.ErrInvalidEmailFormat},
		{"underpayment", testFee - 1, testEmail, testFirstName, testLastName, subscriptionconst.ErrIncorrectFee},
		{"overpayment", testFee + 1, testEmail, testFirstName, testLastName, subscriptionconst.ErrIncorrectFee},
		{"length before format", testFee, "", "", "", subscriptionconst.ErrInvalidEmailLength},
		{"format before fee", testFee + 1, "invalid", testFirstName, testLastName, subscriptionconst.ErrInvalidEmailFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s.subscribeFail(t, user, tc.msg, tc.amount, tc.email, tc.first, tc.last)
		})
	}

	require.False(t, s.subscriber(t, user.ScriptHash()).IsSubscribed)
	require.Zero(t, s.balance(t))
	require.Zero(t, s.gasBalance(t, s.hash()))

	s.subscribe(t, user, testFee, maxEmail, maxName, maxName)
	require.Equal(t, maxEmail, s.subscriber(t, user.ScriptHash()).Email)
}

func TestRejectedPayments(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)
	gasInv := s.gas(t, user)

	gasInv.InvokeFail(t, "ABORT", "transfer", user.ScriptHash(), s.hash(), int64(testFee), nil)
	gasInv.InvokeFail(t, "ABORT", "transfer", user.ScriptHash(), s.hash(), int64(testFee), []any{})
	gasInv.InvokeFail(t, "ABORT", "transfer", user.ScriptHash(), s.hash(), int64(testFee), []any{"donate"})
	gasInv.InvokeFail(t, "ABORT", "transfer", user.ScriptHash(), s.hash(), int64(testFee), []any{"subscribe", testEmail})

	// Direct call is not a GAS payment.
	s.invoker(user).InvokeFail(t, "ABORT", "onNEP17Payment",
		user.ScriptHash(), int64(testFee), subscribeData(testEmail, testFirstName, testLastName))

	require.False(t, s.subscriber(t, user.ScriptHash()).IsSubscribed)
	require.Zero(t, s.gasBalance(t, s.hash()))

	// Periodic payment takes no parameters, even when it is due.
	s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)
	due := s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64()
	setTime(t, s.e, uint64(due*1000))

	gasInv.InvokeFail(t, subscriptionconst.ErrUnknownPayment, "transfer",
		user.ScriptHash(), s.hash(), int64(testFee), []any{"makePayment", "extra"})
	require.Equal(t, due, s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64())
	require.Equal(t, int64(testFee), s.balance(t))
}

func TestMakePayment(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)
	stranger := s.e.NewAccount(t)

	s.payFail(t, user, subscriptionconst.ErrNotSubscribedPayment, testFee)

	s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)
	due := s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64()

	s.payFail(t, user, subscriptionconst.ErrPaymentNotDue, testFee)
	s.payFail(t, user, subscriptionconst.ErrPaymentNotDue, testFee+1)
	s.payFail(t, stranger, subscriptionconst.ErrNotSubscribedPayment, testFee)

	// The last millisecond before due date.
	setTime(t, s.e, uint64(due*1000-2))
	s.payFail(t, user, subscriptionconst.ErrPaymentNotDue, testFee)
	require.Equal(t, due, s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64())

	s.payFail(t, user, subscriptionconst.ErrIncorrectFee, testFee+1)

	h := s.pay(t, user, testFee)
	paidAt := topSeconds(t, s.e)
	newDue := paidAt + subscriptionconst.Period

	events, err := rpcsub.PaymentEventsFromApplicationLog(applicationLog(t, s.e, h))
	require.NoError(t, err)
	require.Equal(t, []*rpcsub.PaymentEvent{{
		Account:         user.ScriptHash(),
		Amount:          big.NewInt(testFee),
		SubscriptionDue: big.NewInt(newDue),
	}}, events)
	require.Equal(t, newDue, s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64())
	require.Equal(t, int64(2*testFee), s.balance(t))
}

func TestLatePaymentResetsDueDate(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)

	s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)

	// Miss several periods: no arrears are accumulated.
	advanceTime(t, s.e, 10*time.Minute)

	s.pay(t, user, testFee)
	require.Equal(t, topSeconds(t, s.e)+subscriptionconst.Period, s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64())

	s.payFail(t, user, subscriptionconst.ErrPaymentNotDue, testFee)
	require.Equal(t, int64(2*testFee), s.balance(t))
}

func TestUnsubscribe(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)
	stranger := s.e.NewAccount(t)
	inv := s.invoker(user)

	inv.InvokeFail(t, subscriptionconst.ErrNotSubscribedUnsubscribe, "unsubscribe", user.ScriptHash())

	s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)
	due := s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64()

	s.invoker(stranger).InvokeFail(t, common.ErrWitnessFailed, "unsubscribe", user.ScriptHash())

	h := inv.Invoke(t, stackitem.Null{}, "unsubscribe", user.ScriptHash())
	events, err := rpcsub.UnsubscribedEventsFromApplicationLog(applicationLog(t, s.e, h))
	require.NoError(t, err)
	require.Equal(t, []*rpcsub.UnsubscribedEvent{{Account: user.ScriptHash()}}, events)

	require.False(t, testInvokeBool(t, inv, "isSubscribedUser", user.ScriptHash()))

	sub := s.subscriber(t, user.ScriptHash())
	require.False(t, sub.IsSubscribed)
	require.Equal(t, due, sub.SubscriptionDue.Int64())
	require.Equal(t, testEmail, sub.Email)
	require.Equal(t, testFirstName, sub.FirstName)
	require.Equal(t, testLastName, sub.LastName)

	inv.InvokeFail(t, subscriptionconst.ErrNotSubscribedUnsubscribe, "unsubscribe", user.ScriptHash())
	s.payFail(t, user, subscriptionconst.ErrNotSubscribedPayment, testFee)

	// No refund.
	require.Equal(t, int64(testFee), s.balance(t))
}

func TestResubscribe(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	first := s.e.NewAccount(t)
	second := s.e.NewAccount(t)

	s.subscribe(t, first, testFee, "first@example.com", "First", "User")
	s.subscribe(t, second, testFee, "second@example.com", "Second", "User")
	s.invoker(first).Invoke(t, stackitem.Null{}, "unsubscribe", first.ScriptHash())

	s.subscribe(t, first, testFee, "renewed@example.com", "Renewed", "User")

	all := s.allSubscribers(t)
	require.Len(t, all, 2)
	require.Equal(t, "renewed@example.com", all[0].Email)
	require.True(t, all[0].IsSubscribed)
	require.Equal(t, "second@example.com", all[1].Email)
	require.Equal(t, int64(3*testFee), s.balance(t))
}

func TestOwnerGate(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)
	inv := s.invoker(user)

	s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)

	inv.InvokeFail(t, subscriptionconst.ErrNotOwner, "updateSubscriptionFee", int64(5))
	inv.InvokeFail(t, subscriptionconst.ErrNotOwner, "withdrawFunds")
	inv.InvokeFail(t, subscriptionconst.ErrNotOwner, "selfDestructContract")

	for _, method := range []string{"getAllSubscribers", "listSubscribers"} {
		_, err := testInvoke(t, inv, method)
		require.Error(t, err)
		require.True(t, strings.Contains(err.Error(), subscriptionconst.ErrNotOwner), err.Error())

		_, err = testInvoke(t, s.ownerInv, method)
		require.NoError(t, err, method)
	}
	require.Len(t, s.allSubscribers(t), 1)

	nef, err := s.contract.NEF.Bytes()
	require.NoError(t, err)
	inv.InvokeFail(t, subscriptionconst.ErrNotOwner, "update", nef, mustJSON(t, s.contract.Manifest), nil)

	require.Equal(t, int64(testFee), testInvokeInt(t, inv, "subscriptionFee"))
	require.Equal(t, int64(testFee), s.balance(t))
	require.False(t, testInvokeBool(t, inv, "isDestroyed"))
	require.Equal(t, subscriptionconst.ErrNotOwner, common.ErrOwnerWitnessFailed)
}

func TestUpdateSubscriptionFee(t *testing.T) {
	t.Run("zero allowed", func(t *testing.T) {
		s := newSubscriptionEnv(t, testFee, false)
		user := s.e.NewAccount(t)

		s.ownerInv.InvokeFail(t, subscriptionconst.ErrInvalidFee, "updateSubscriptionFee", int64(-1))

		s.ownerInv.Invoke(t, stackitem.Null{}, "updateSubscriptionFee", int64(2*testFee))
		require.Equal(t, int64(2*testFee), testInvokeInt(t, s.ownerInv, "subscriptionFee"))

		s.subscribeFail(t, user, subscriptionconst.ErrIncorrectFee, testFee, testEmail, testFirstName, testLastName)
		s.subscribe(t, user, 2*testFee, testEmail, testFirstName, testLastName)

		s.ownerInv.Invoke(t, stackitem.Null{}, "updateSubscriptionFee", int64(0))
		require.Zero(t, testInvokeInt(t, s.ownerInv, "subscriptionFee"))

		advanceTime(t, s.e, time.Minute+time.Second)
		s.payFail(t, user, subscriptionconst.ErrIncorrectFee, 2*testFee)
		s.pay(t, user, 0)
		require.Equal(t, int64(2*testFee), s.balance(t))
	})

	t.Run("zero rejected", func(t *testing.T) {
		s := newSubscriptionEnv(t, testFee, true)

		s.ownerInv.InvokeFail(t, subscriptionconst.ErrInvalidFee, "updateSubscriptionFee", int64(0))
		s.ownerInv.Invoke(t, stackitem.Null{}, "updateSubscriptionFee", int64(1))
		require.Equal(t, int64(1), testInvokeInt(t, s.ownerInv, "subscriptionFee"))
	})
}

func TestWithdrawFunds(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	users := []util.Uint160{}
	for i := 0; i < 3; i++ {
		u := s.e.NewAccount(t)
		s.subscribe(t, u, testFee, testEmail, testFirstName, testLastName)
		users = append(users, u.ScriptHash())
	}
	require.Equal(t, int64(3*testFee), s.balance(t))
	require.Equal(t, int64(3*testFee), s.gasBalance(t, s.hash()))

	h := s.ownerInv.Invoke(t, stackitem.Null{}, "withdrawFunds")
	requireGASTransfer(t, s, h, s.hash(), s.owner.ScriptHash(), 3*testFee)

	require.Zero(t, s.balance(t))
	require.Zero(t, s.gasBalance(t, s.hash()))

	// Empty balance withdrawal is a no-op.
	s.ownerInv.Invoke(t, stackitem.Null{}, "withdrawFunds")
	require.Zero(t, s.balance(t))

	// Withdrawal doesn't affect subscriptions.
	for _, u := range users {
		require.True(t, s.subscriber(t, u).IsSubscribed)
	}
}

func TestCustodyConservation(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	alice := s.e.NewAccount(t)
	bob := s.e.NewAccount(t)

	var paid, withdrawn int64

	s.subscribe(t, alice, testFee, "alice@example.com", "Alice", "A")
	s.subscribe(t, bob, testFee, "bob@example.com", "Bob", "B")
	paid += 2 * testFee

	s.ownerInv.Invoke(t, stackitem.Null{}, "withdrawFunds")
	withdrawn += 2 * testFee
	require.Equal(t, paid-withdrawn, s.balance(t))

	advanceTime(t, s.e, time.Minute+time.Second)
	s.pay(t, alice, testFee)
	s.pay(t, bob, testFee)
	paid += 2 * testFee
	s.payFail(t, alice, subscriptionconst.ErrPaymentNotDue, testFee)

	require.Equal(t, paid-withdrawn, s.balance(t))
	require.Equal(t, paid-withdrawn, s.gasBalance(t, s.hash()))
}

func TestSelfDestructContract(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)
	inv := s.invoker(user)

	s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)

	h := s.ownerInv.Invoke(t, stackitem.Null{}, "selfDestructContract")
	requireGASTransfer(t, s, h, s.hash(), s.owner.ScriptHash(), testFee)
	require.Zero(t, s.gasBalance(t, s.hash()))

	require.True(t, testInvokeBool(t, inv, "isDestroyed"))
	require.Equal(t, int64(common.Version), testInvokeInt(t, inv, "version"))

	advanceTime(t, s.e, time.Minute+time.Second)
	s.payFail(t, user, subscriptionconst.ErrDestroyed, testFee)
	s.subscribeFail(t, s.e.NewAccount(t), subscriptionconst.ErrDestroyed, testFee, testEmail, testFirstName, testLastName)
	inv.InvokeFail(t, subscriptionconst.ErrDestroyed, "unsubscribe", user.ScriptHash())
	s.ownerInv.InvokeFail(t, subscriptionconst.ErrDestroyed, "updateSubscriptionFee", int64(1))
	s.ownerInv.InvokeFail(t, subscriptionconst.ErrDestroyed, "withdrawFunds")
	s.ownerInv.InvokeFail(t, subscriptionconst.ErrDestroyed, "selfDestructContract")

	for _, call := range []struct {
		method string
		args   []any
	}{
		{"checkSubscription", []any{user.ScriptHash()}},
		{"isSubscribedUser", []any{user.ScriptHash()}},
		{"getAllSubscribers", nil},
		{"listSubscribers", nil},
		{"isOwner", []any{s.owner.ScriptHash()}},
		{"owner", nil},
		{"subscriptionFee", nil},
		{"balance", nil},
	} {
		_, err := testInvoke(t, s.ownerInv, call.method, call.args...)
		require.Error(t, err, call.method)
		require.True(t, strings.Contains(err.Error(), subscriptionconst.ErrDestroyed), err.Error())
	}
}

func TestListSubscribers(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	alice := s.e.NewAccount(t)
	bob := s.e.NewAccount(t)

	s.subscribe(t, alice, testFee, "alice@example.com", "Alice", "A")
	s.subscribe(t, bob, testFee, "bob@example.com", "Bob", "B")
	s.invoker(bob).Invoke(t, stackitem.Null{}, "unsubscribe", bob.ScriptHash())

	stack, err := testInvoke(t, s.ownerInv, "listSubscribers")
	require.NoError(t, err)

	iter := stack.Pop().Value().(*storage.Iterator)
	entries, err := rpcsub.SubscriberEntriesFromItems(iteratorToArray(iter))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byAccount := make(map[util.Uint160]*rpcsub.Subscriber)
	for _, e := range entries {
		byAccount[e.Account] = e.Subscriber
	}
	require.True(t, byAccount[alice.ScriptHash()].IsSubscribed)
	require.Equal(t, "alice@example.com", byAccount[alice.ScriptHash()].Email)
	require.False(t, byAccount[bob.ScriptHash()].IsSubscribed)
}

func TestSubscriptionScenario(t *testing.T) {
	s := newSubscriptionEnv(t, testFee, false)
	user := s.e.NewAccount(t)
	inv := s.invoker(user)

	before := topSeconds(t, s.e)
	h := s.subscribe(t, user, testFee, testEmail, testFirstName, testLastName)

	events, err := rpcsub.SubscribedEventsFromApplicationLog(applicationLog(t, s.e, h))
	require.NoError(t, err)
	require.Len(t, events, 1)
	due := events[0].SubscriptionDue.Int64()
	require.GreaterOrEqual(t, due, before+subscriptionconst.Period)
	require.LessOrEqual(t, due, before+subscriptionconst.Period+1)
	require.Equal(t, user.ScriptHash(), events[0].Account)

	require.Equal(t, &rpcsub.Subscriber{
		IsSubscribed:    true,
		SubscriptionDue: big.NewInt(due),
		Email:           testEmail,
		FirstName:       testFirstName,
		LastName:        testLastName,
	}, s.subscriber(t, user.ScriptHash()))

	s.subscribeFail(t, user, subscriptionconst.ErrAlreadySubscribed, testFee, testEmail, testFirstName, testLastName)
	s.payFail(t, user, subscriptionconst.ErrPaymentNotDue, testFee)

	setTime(t, s.e, uint64(due*1000))
	s.pay(t, user, testFee)
	require.Equal(t, topSeconds(t, s.e)+subscriptionconst.Period, s.subscriber(t, user.ScriptHash()).SubscriptionDue.Int64())

	h = inv.Invoke(t, stackitem.Null{}, "unsubscribe", user.ScriptHash())
	unsubs, err := rpcsub.UnsubscribedEventsFromApplicationLog(applicationLog(t, s.e, h))
	require.NoError(t, err)
	require.Equal(t, []*rpcsub.UnsubscribedEvent{{Account: user.ScriptHash()}}, unsubs)
	require.False(t, testInvokeBool(t, inv, "isSubscribedUser", user.ScriptHash()))

	_, err = testInvoke(t, inv, "getAllSubscribers")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), subscriptionconst.ErrNotOwner))

	all := s.allSubscribers(t)
	require.Len(t, all, 1)
	require.False(t, all[0].IsSubscribed)
	require.Equal(t, testEmail, all[0].Email)
}

func requireGASTransfer(t *testing.T, s *subscriptionEnv, h util.Uint256, from, to util.Uint160, amount int64) {
	aer := s.e.GetTxExecResult(t, h)
	gasHash := s.e.NativeHash(t, nativenames.Gas)

	for _, ev := range aer.Events {
		if !ev.ScriptHash.Equals(gasHash) || ev.Name != "Transfer" {
			continue
		}
		arr := ev.Item.Value().([]stackitem.Item)
		f, err := arr[0].TryBytes()
		require.NoError(t, err)
		r, err := arr[1].TryBytes()
		require.NoError(t, err)
		if !bytes.Equal(f, from.BytesBE()) || !bytes.Equal(r, to.BytesBE()) {
			continue
		}
		v, err := arr[2].TryInteger()
		require.NoError(t, err)
		require.Equal(t, amount, v.Int64())
		return
	}
	t.Fatalf("no GAS transfer from %s to %s", from.StringLE(), to.StringLE())
}
