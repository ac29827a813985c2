package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/util"
)

// ErrTransferFailed is thrown when contract can't send its GAS.
const ErrTransferFailed = "failed to transfer funds, aborting"

// AbortWithMessage calls `runtime.Log` with passed message
// and calls `ABORT` opcode.
func AbortWithMessage(msg string) {
	runtime.Log(msg)
	util.Abort()
}

// TransferGAS sends amount of GAS owned by the executing contract to the
// receiver. Zero amount is a no-op. It panics with ErrTransferFailed if GAS
// contract refuses the transfer.
func TransferGAS(to interop.Hash160, amount int) {
	if amount == 0 {
		return
	}

	from := runtime.GetExecutingScriptHash()
	if !gas.Transfer(from, to, amount, nil) {
		panic(ErrTransferFailed)
	}
}
