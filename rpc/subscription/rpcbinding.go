// Package subscription contains RPC wrappers for Subscription contract.
package subscription

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

const (
	subscribeAction = "subscribe"
	paymentAction   = "makePayment"
)

// Subscriber is a contract-specific subscription.Subscriber type used by its methods.
type Subscriber struct {
	IsSubscribed    bool
	SubscriptionDue *big.Int
	Email           string
	FirstName       string
	LastName        string
}

// SubscriberEntry is an element of `listSubscribers` iterator.
type SubscriberEntry struct {
	Account    util.Uint160
	Subscriber *Subscriber
}

// SubscribedEvent represents "Subscribed" event emitted by the contract.
type SubscribedEvent struct {
	Account         util.Uint160
	SubscriptionDue *big.Int
	Email           string
	FirstName       string
	LastName        string
}

// UnsubscribedEvent represents "Unsubscribed" event emitted by the contract.
type UnsubscribedEvent struct {
	Account util.Uint160
}

// PaymentEvent represents "Payment" event emitted by the contract.
type PaymentEvent struct {
	Account         util.Uint160
	Amount          *big.Int
	SubscriptionDue *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
	Sender() util.Uint160
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// Balance invokes `balance` method of contract.
func (c *ContractReader) Balance() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "balance"))
}

// CheckSubscription invokes `checkSubscription` method of contract.
func (c *ContractReader) CheckSubscription(account util.Uint160) (*Subscriber, error) {
	return itemToSubscriber(unwrap.Item(c.invoker.Call(c.hash, "checkSubscription", account)))
}

// GetAllSubscribers invokes `getAllSubscribers` method of contract. It must
// be called with the witness of the contract owner.
func (c *ContractReader) GetAllSubscribers() ([]*Subscriber, error) {
	items, err := unwrap.Array(c.invoker.Call(c.hash, "getAllSubscribers"))
	if err != nil {
		return nil, err
	}

	res := make([]*Subscriber, len(items))
	for i := range items {
		res[i], err = itemToSubscriber(items[i], nil)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

// IsDestroyed invokes `isDestroyed` method of contract.
func (c *ContractReader) IsDestroyed() (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isDestroyed"))
}

// IsOwner invokes `isOwner` method of contract.
func (c *ContractReader) IsOwner(account util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isOwner", account))
}

// IsSubscribedUser invokes `isSubscribedUser` method of contract.
func (c *ContractReader) IsSubscribedUser(account util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isSubscribedUser", account))
}

// ListSubscribers invokes `listSubscribers` method of contract. It must be
// called with the witness of the contract owner.
func (c *ContractReader) ListSubscribers() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "listSubscribers"))
}

// ListSubscribersExpanded is similar to ListSubscribers (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListSubscribersExpanded(_numOfIteratorItems int) ([]*SubscriberEntry, error) {
	items, err := unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listSubscribers", _numOfIteratorItems))
	if err != nil {
		return nil, err
	}
	return SubscriberEntriesFromItems(items)
}

// TraverseSubscribers fetches all items of the iterator returned by
// ListSubscribers in batches of the given size and terminates the session.
func (c *ContractReader) TraverseSubscribers(sessionID uuid.UUID, iter result.Iterator, batch int) ([]*SubscriberEntry, error) {
	defer func() { _ = c.invoker.TerminateSession(sessionID) }()

	var res []*SubscriberEntry
	for {
		items, err := c.invoker.TraverseIterator(sessionID, &iter, batch)
		if err != nil {
			return nil, fmt.Errorf("traverse iterator: %w", err)
		}
		entries, err := SubscriberEntriesFromItems(items)
		if err != nil {
			return nil, err
		}
		res = append(res, entries...)
		if len(items) < batch {
			return res, nil
		}
	}
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// SubscriptionFee invokes `subscriptionFee` method of contract.
func (c *ContractReader) SubscriptionFee() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "subscriptionFee"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Subscribe creates a transaction transferring fee GAS from the sender to the
// contract with subscription data. This transaction is signed and immediately
// sent to the network. The values returned are its hash, ValidUntilBlock value
// and error if any.
func (c *Contract) Subscribe(email, firstName, lastName string, fee *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(gas.Hash, "transfer", c.actor.Sender(), c.hash, fee, subscribeData(email, firstName, lastName))
}

// SubscribeTransaction creates a transaction transferring fee GAS from the
// sender to the contract with subscription data. This transaction is signed,
// but not sent to the network, instead it's returned to the caller.
func (c *Contract) SubscribeTransaction(email, firstName, lastName string, fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(gas.Hash, "transfer", c.actor.Sender(), c.hash, fee, subscribeData(email, firstName, lastName))
}

// SubscribeUnsigned creates a transaction transferring fee GAS from the
// sender to the contract with subscription data. This transaction is not
// signed, it's simply returned to the caller. Any fields of it that do not
// affect fees can be changed (ValidUntilBlock, Nonce), fee values (NetworkFee,
// SystemFee) can be increased as well.
func (c *Contract) SubscribeUnsigned(email, firstName, lastName string, fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(gas.Hash, "transfer", nil, c.actor.Sender(), c.hash, fee, subscribeData(email, firstName, lastName))
}

// MakePayment creates a transaction transferring fee GAS from the sender to
// the contract as the next subscription period payment. This transaction is
// signed and immediately sent to the network. The values returned are its
// hash, ValidUntilBlock value and error if any.
func (c *Contract) MakePayment(fee *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(gas.Hash, "transfer", c.actor.Sender(), c.hash, fee, []any{paymentAction})
}

// MakePaymentTransaction creates a transaction transferring fee GAS from the
// sender to the contract as the next subscription period payment. This
// transaction is signed, but not sent to the network, instead it's returned
// to the caller.
func (c *Contract) MakePaymentTransaction(fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(gas.Hash, "transfer", c.actor.Sender(), c.hash, fee, []any{paymentAction})
}

// MakePaymentUnsigned creates a transaction transferring fee GAS from the
// sender to the contract as the next subscription period payment. This
// transaction is not signed, it's simply returned to the caller.
func (c *Contract) MakePaymentUnsigned(fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(gas.Hash, "transfer", nil, c.actor.Sender(), c.hash, fee, []any{paymentAction})
}

// Unsubscribe creates a transaction invoking `unsubscribe` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Unsubscribe(account util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "unsubscribe", account)
}

// UnsubscribeTransaction creates a transaction invoking `unsubscribe` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UnsubscribeTransaction(account util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "unsubscribe", account)
}

// UnsubscribeUnsigned creates a transaction invoking `unsubscribe` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UnsubscribeUnsigned(account util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "unsubscribe", nil, account)
}

// UpdateSubscriptionFee creates a transaction invoking `updateSubscriptionFee` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) UpdateSubscriptionFee(fee *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "updateSubscriptionFee", fee)
}

// UpdateSubscriptionFeeTransaction creates a transaction invoking `updateSubscriptionFee` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateSubscriptionFeeTransaction(fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "updateSubscriptionFee", fee)
}

// UpdateSubscriptionFeeUnsigned creates a transaction invoking `updateSubscriptionFee` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateSubscriptionFeeUnsigned(fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "updateSubscriptionFee", nil, fee)
}

// WithdrawFunds creates a transaction invoking `withdrawFunds` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) WithdrawFunds() (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "withdrawFunds")
}

// WithdrawFundsTransaction creates a transaction invoking `withdrawFunds` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) WithdrawFundsTransaction() (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "withdrawFunds")
}

// WithdrawFundsUnsigned creates a transaction invoking `withdrawFunds` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) WithdrawFundsUnsigned() (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "withdrawFunds", nil)
}

// SelfDestructContract creates a transaction invoking `selfDestructContract` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SelfDestructContract() (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "selfDestructContract")
}

// SelfDestructContractTransaction creates a transaction invoking `selfDestructContract` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SelfDestructContractTransaction() (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "selfDestructContract")
}

// SelfDestructContractUnsigned creates a transaction invoking `selfDestructContract` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SelfDestructContractUnsigned() (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "selfDestructContract", nil)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(nefFile []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", nefFile, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(nefFile []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", nefFile, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(nefFile []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, nefFile, manifest, data)
}

func subscribeData(email, firstName, lastName string) []any {
	return []any{subscribeAction, email, firstName, lastName}
}

// itemToSubscriber converts stack item into *Subscriber.
func itemToSubscriber(item stackitem.Item, err error) (*Subscriber, error) {
	if err != nil {
		return nil, err
	}
	var res = new(Subscriber)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Subscriber from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Subscriber) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 5 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	res.IsSubscribed, err = arr[0].TryBool()
	if err != nil {
		return fmt.Errorf("field IsSubscribed: %w", err)
	}

	res.SubscriptionDue, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field SubscriptionDue: %w", err)
	}

	res.Email, err = itemToString(arr[2])
	if err != nil {
		return fmt.Errorf("field Email: %w", err)
	}

	res.FirstName, err = itemToString(arr[3])
	if err != nil {
		return fmt.Errorf("field FirstName: %w", err)
	}

	res.LastName, err = itemToString(arr[4])
	if err != nil {
		return fmt.Errorf("field LastName: %w", err)
	}

	return nil
}

// SubscriberEntriesFromItems converts items of `listSubscribers` iterator
// into entries.
func SubscriberEntriesFromItems(items []stackitem.Item) ([]*SubscriberEntry, error) {
	res := make([]*SubscriberEntry, len(items))
	for i := range items {
		res[i] = new(SubscriberEntry)
		if err := res[i].FromStackItem(items[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

// FromStackItem retrieves fields of SubscriberEntry from the given key-value
// [stackitem.Struct].
func (e *SubscriberEntry) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.Account, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	e.Subscriber, err = itemToSubscriber(arr[1], nil)
	if err != nil {
		return fmt.Errorf("field Subscriber: %w", err)
	}

	return nil
}

// SubscribedEventsFromApplicationLog retrieves a set of all emitted events
// with "Subscribed" name from the provided [result.ApplicationLog].
func SubscribedEventsFromApplicationLog(log *result.ApplicationLog) ([]*SubscribedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*SubscribedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Subscribed" {
				continue
			}
			event := new(SubscribedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize SubscribedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to SubscribedEvent or
// returns an error if it's not possible to do to so.
func (e *SubscribedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 5 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.Account, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	e.SubscriptionDue, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field SubscriptionDue: %w", err)
	}

	e.Email, err = itemToString(arr[2])
	if err != nil {
		return fmt.Errorf("field Email: %w", err)
	}

	e.FirstName, err = itemToString(arr[3])
	if err != nil {
		return fmt.Errorf("field FirstName: %w", err)
	}

	e.LastName, err = itemToString(arr[4])
	if err != nil {
		return fmt.Errorf("field LastName: %w", err)
	}

	return nil
}

// UnsubscribedEventsFromApplicationLog retrieves a set of all emitted events
// with "Unsubscribed" name from the provided [result.ApplicationLog].
func UnsubscribedEventsFromApplicationLog(log *result.ApplicationLog) ([]*UnsubscribedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*UnsubscribedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Unsubscribed" {
				continue
			}
			event := new(UnsubscribedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize UnsubscribedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to UnsubscribedEvent or
// returns an error if it's not possible to do to so.
func (e *UnsubscribedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.Account, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	return nil
}

// PaymentEventsFromApplicationLog retrieves a set of all emitted events
// with "Payment" name from the provided [result.ApplicationLog].
func PaymentEventsFromApplicationLog(log *result.ApplicationLog) ([]*PaymentEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*PaymentEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Payment" {
				continue
			}
			event := new(PaymentEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize PaymentEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to PaymentEvent or
// returns an error if it's not possible to do to so.
func (e *PaymentEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.Account, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	e.Amount, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	e.SubscriptionDue, err = arr[2].TryInteger()
	if err != nil {
		return fmt.Errorf("field SubscriptionDue: %w", err)
	}

	return nil
}

func itemToString(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("not a UTF-8 string")
	}
	return string(b), nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}
