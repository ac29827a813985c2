package subscription

import (
	"github.com/gabrielajasnosz/subscriptions-contract/common"
	"github.com/gabrielajasnosz/subscriptions-contract/contracts/subscription/subscriptionconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Subscriber is a registry record of an account that has ever subscribed.
type Subscriber struct {
	IsSubscribed bool
	// Block time (in seconds) since which the next payment is accepted.
	SubscriptionDue int
	Email           string
	FirstName       string
	LastName        string
}

const (
	subscriberPrefix = 's'
	indexPrefix      = 'i'
	orderPrefix      = 'o'
	countKey         = 'n'

	ownerKey         = 'w'
	feeKey           = 'f'
	balanceKey       = 'b'
	rejectZeroFeeKey = 'z'
	destroyedKey     = 'd'
)

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// Payment data is an array whose first element names the action:
// subscribeAction followed by email, first and last names, or
// paymentAction alone. Any other payment is rejected.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := aliveContext()

	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		common.AbortWithMessage(subscriptionconst.ErrGASOnly)
	}

	if len(from) != interop.Hash160Len || data == nil {
		common.AbortWithMessage(subscriptionconst.ErrUnknownPayment)
	}

	args := data.([]any)
	if len(args) == 0 {
		common.AbortWithMessage(subscriptionconst.ErrUnknownPayment)
	}

	switch args[0].(string) {
	case subscriptionconst.SubscribeAction:
		if len(args) != 4 {
			common.AbortWithMessage(subscriptionconst.ErrUnknownPayment)
		}
		subscribe(ctx, from, amount, args[1].(string), args[2].(string), args[3].(string))
	case subscriptionconst.PaymentAction:
		if len(args) != 1 {
			common.AbortWithMessage(subscriptionconst.ErrUnknownPayment)
		}
		makePayment(ctx, from, amount)
	default:
		common.AbortWithMessage(subscriptionconst.ErrUnknownPayment)
	}
}

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()

	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		owner         interop.Hash160
		fee           int
		rejectZeroFee bool
	})

	if len(args.owner) != interop.Hash160Len {
		panic("incorrect owner")
	}

	if args.fee < 0 || (args.rejectZeroFee && args.fee == 0) {
		panic(subscriptionconst.ErrInvalidFee)
	}

	storage.Put(ctx, ownerKey, args.owner)
	storage.Put(ctx, feeKey, args.fee)
	storage.Put(ctx, balanceKey, 0)
	storage.Put(ctx, countKey, 0)
	if args.rejectZeroFee {
		storage.Put(ctx, rejectZeroFeeKey, true)
	}

	runtime.Log("subscription contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the contract owner and only until the contract is destroyed.
func Update(nefFile, manifest []byte, data any) {
	ctx := aliveContext()
	checkOwner(ctx)

	common.UpdateContract(nefFile, manifest, data)
	runtime.Log("subscription contract updated")
}

// Unsubscribe deactivates subscription of the account. It must be signed by
// the account. Due date and contact details are kept, paid funds are not
// returned.
//
// Produces Unsubscribed notification.
func Unsubscribe(account interop.Hash160) {
	ctx := aliveContext()

	common.CheckWitness(account)

	s := getSubscriber(ctx, account)
	if !s.IsSubscribed {
		panic(subscriptionconst.ErrNotSubscribedUnsubscribe)
	}

	s.IsSubscribed = false
	common.SetSerialized(ctx, subscriberKey(account), s)

	runtime.Notify("Unsubscribed", account)
}

// UpdateSubscriptionFee sets the fee required by subsequent subscriptions and
// payments. It can be invoked only by the contract owner.
func UpdateSubscriptionFee(fee int) {
	ctx := aliveContext()
	checkOwner(ctx)

	if fee < 0 || (fee == 0 && storage.Get(ctx, rejectZeroFeeKey) != nil) {
		panic(subscriptionconst.ErrInvalidFee)
	}

	storage.Put(ctx, feeKey, fee)
}

// WithdrawFunds transfers the whole accumulated balance to the contract
// owner. It can be invoked only by the contract owner.
func WithdrawFunds() {
	ctx := aliveContext()
	owner := checkOwner(ctx)

	payout(ctx, owner)
}

// SelfDestructContract transfers the remaining balance to the contract owner
// and puts the contract into terminal state: every method except IsDestroyed
// and Version fails after that. It can be invoked only by the contract owner.
func SelfDestructContract() {
	ctx := aliveContext()
	owner := checkOwner(ctx)

	storage.Put(ctx, destroyedKey, true)
	payout(ctx, owner)

	runtime.Log("subscription contract destroyed")
}

// CheckSubscription returns registry record of the account. Unknown accounts
// get zero record.
func CheckSubscription(account interop.Hash160) Subscriber {
	ctx := aliveReadOnlyContext()
	return getSubscriber(ctx, account)
}

// IsSubscribedUser returns true if the account has an active subscription.
func IsSubscribedUser(account interop.Hash160) bool {
	ctx := aliveReadOnlyContext()
	return getSubscriber(ctx, account).IsSubscribed
}

// GetAllSubscribers returns records of all accounts that have ever subscribed
// in the order of their first subscription. It can be invoked only by the
// contract owner.
func GetAllSubscribers() []Subscriber {
	ctx := aliveReadOnlyContext()
	checkOwner(ctx)

	result := []Subscriber{}
	n := common.GetInt(ctx, countKey)
	for i := 0; i < n; i++ { //nolint:intrange // Not supported by NeoGo
		account := storage.Get(ctx, orderKey(i)).(interop.Hash160)
		result = append(result, getSubscriber(ctx, account))
	}

	return result
}

// ListSubscribers returns iterator over registry in (account, Subscriber)
// pairs ordered by account. It can be invoked only by the contract owner.
func ListSubscribers() iterator.Iterator {
	ctx := aliveReadOnlyContext()
	checkOwner(ctx)

	return storage.Find(ctx, []byte{subscriberPrefix}, storage.RemovePrefix|storage.DeserializeValues)
}

// IsOwner checks whether the account is the contract owner.
func IsOwner(account interop.Hash160) bool {
	ctx := aliveReadOnlyContext()
	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	return account.Equals(owner)
}

// Owner returns the contract owner set on deployment.
func Owner() interop.Hash160 {
	ctx := aliveReadOnlyContext()
	return storage.Get(ctx, ownerKey).(interop.Hash160)
}

// SubscriptionFee returns the amount of GAS required for subscription or
// payment.
func SubscriptionFee() int {
	ctx := aliveReadOnlyContext()
	return common.GetInt(ctx, feeKey)
}

// Balance returns the amount of GAS accumulated since the last withdrawal.
func Balance() int {
	ctx := aliveReadOnlyContext()
	return common.GetInt(ctx, balanceKey)
}

// IsDestroyed returns true if SelfDestructContract has been invoked.
func IsDestroyed() bool {
	return storage.Get(storage.GetReadOnlyContext(), destroyedKey) != nil
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func subscribe(ctx storage.Context, account interop.Hash160, amount int, email, firstName, lastName string) {
	if len(email) == 0 || len(email) > subscriptionconst.MaxEmailLength {
		panic(subscriptionconst.ErrInvalidEmailLength)
	}
	if len(firstName) == 0 || len(firstName) > subscriptionconst.MaxNameLength {
		panic(subscriptionconst.ErrInvalidFirstNameLength)
	}
	if len(lastName) == 0 || len(lastName) > subscriptionconst.MaxNameLength {
		panic(subscriptionconst.ErrInvalidLastNameLength)
	}
	if !isValidEmail(email) {
		panic(subscriptionconst.ErrInvalidEmailFormat)
	}
	if amount != common.GetInt(ctx, feeKey) {
		panic(subscriptionconst.ErrIncorrectFee)
	}
	if getSubscriber(ctx, account).IsSubscribed {
		panic(subscriptionconst.ErrAlreadySubscribed)
	}

	s := Subscriber{
		IsSubscribed:    true,
		SubscriptionDue: now() + subscriptionconst.Period,
		Email:           email,
		FirstName:       firstName,
		LastName:        lastName,
	}
	common.SetSerialized(ctx, subscriberKey(account), s)

	indexKey := append([]byte{indexPrefix}, account...)
	if storage.Get(ctx, indexKey) == nil {
		n := common.GetInt(ctx, countKey)
		storage.Put(ctx, indexKey, n)
		storage.Put(ctx, orderKey(n), account)
		storage.Put(ctx, countKey, n+1)
	}

	credit(ctx, amount)

	runtime.Notify("Subscribed", account, s.SubscriptionDue, email, firstName, lastName)
}

func makePayment(ctx storage.Context, account interop.Hash160, amount int) {
	s := getSubscriber(ctx, account)
	if !s.IsSubscribed {
		panic(subscriptionconst.ErrNotSubscribedPayment)
	}

	t := now()
	if t < s.SubscriptionDue {
		panic(subscriptionconst.ErrPaymentNotDue)
	}
	if amount != common.GetInt(ctx, feeKey) {
		panic(subscriptionconst.ErrIncorrectFee)
	}

	s.SubscriptionDue = t + subscriptionconst.Period
	common.SetSerialized(ctx, subscriberKey(account), s)

	credit(ctx, amount)

	runtime.Notify("Payment", account, amount, s.SubscriptionDue)
}

// isValidEmail requires '@' with non-empty text on both sides of it.
func isValidEmail(email string) bool {
	at := std.MemorySearch([]byte(email), []byte("@"))
	return at > 0 && at < len(email)-1
}

func credit(ctx storage.Context, amount int) {
	storage.Put(ctx, balanceKey, common.GetInt(ctx, balanceKey)+amount)
}

// payout zeroes the balance before transferring it to the receiver.
func payout(ctx storage.Context, receiver interop.Hash160) {
	amount := common.GetInt(ctx, balanceKey)
	storage.Put(ctx, balanceKey, 0)

	common.TransferGAS(receiver, amount)
}

func getSubscriber(ctx storage.Context, account interop.Hash160) Subscriber {
	data := common.GetSerialized(ctx, subscriberKey(account))
	if data == nil {
		return Subscriber{}
	}

	return data.(Subscriber)
}

func checkOwner(ctx storage.Context) interop.Hash160 {
	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	common.CheckOwnerWitness(owner)

	return owner
}

func aliveContext() storage.Context {
	ctx := storage.GetContext()
	if storage.Get(ctx, destroyedKey) != nil {
		panic(subscriptionconst.ErrDestroyed)
	}

	return ctx
}

func aliveReadOnlyContext() storage.Context {
	ctx := storage.GetReadOnlyContext()
	if storage.Get(ctx, destroyedKey) != nil {
		panic(subscriptionconst.ErrDestroyed)
	}

	return ctx
}

func subscriberKey(account interop.Hash160) []byte {
	return append([]byte{subscriberPrefix}, account...)
}

func orderKey(i int) []byte {
	return append([]byte{orderPrefix}, []byte(std.Itoa(i, 10))...)
}

func now() int {
	return runtime.GetTime() / 1000
}
