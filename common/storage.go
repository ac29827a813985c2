package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// GetInt returns integer stored by the key or 0 if there is no such item.
func GetInt(ctx storage.Context, key any) int {
	val := storage.Get(ctx, key)
	if val != nil {
		return val.(int)
	}

	return 0
}

// GetSerialized returns deserialized value stored by the key or nil if there
// is no such item.
func GetSerialized(ctx storage.Context, key any) any {
	data := storage.Get(ctx, key)
	if data != nil {
		return std.Deserialize(data.([]byte))
	}

	return nil
}

// SetSerialized serializes data and puts it into contract storage.
func SetSerialized(ctx storage.Context, key any, value any) {
	data := std.Serialize(value)
	storage.Put(ctx, key, data)
}
