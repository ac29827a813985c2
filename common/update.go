package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
)

// UpdateContract replaces executable and manifest of the calling contract
// using native Management contract. Current version is appended to the data
// so _deploy can check it with CheckVersion.
func UpdateContract(nefFile, manifest []byte, data any) {
	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, AppendVersion(data))
}
