// Package relay is a test contract holding subscription on its own account.
package relay

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Payment is the last GAS transfer received by the contract.
type Payment struct {
	From   interop.Hash160
	Amount int
	Data   any
}

func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	if !runtime.GetCallingScriptHash().Equals(gas.Hash) {
		panic("only GAS is accepted")
	}
	storage.Put(storage.GetContext(), "key", std.Serialize(Payment{
		From:   from,
		Amount: amount,
		Data:   data,
	}))
}

// Received returns the last received GAS transfer.
func Received() Payment {
	val := storage.Get(storage.GetReadOnlyContext(), "key")
	if val == nil {
		return Payment{}
	}
	return std.Deserialize(val.([]byte)).(Payment)
}

// Subscribe subscribes the contract account paying fee to target.
func Subscribe(target interop.Hash160, email, firstName, lastName string, fee int) bool {
	return gas.Transfer(runtime.GetExecutingScriptHash(), target, fee, []any{"subscribe", email, firstName, lastName})
}

// Pay pays for the next period of the contract account subscription.
func Pay(target interop.Hash160, fee int) bool {
	return gas.Transfer(runtime.GetExecutingScriptHash(), target, fee, []any{"makePayment"})
}

// Unsubscribe cancels subscription of the contract account.
func Unsubscribe(target interop.Hash160) {
	contract.Call(target, "unsubscribe", contract.All, runtime.GetExecutingScriptHash())
}

// Withdraw requests collected fees from target owned by the contract.
func Withdraw(target interop.Hash160) {
	contract.Call(target, "withdrawFunds", contract.All)
}
