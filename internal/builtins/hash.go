package builtins

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"burlap/internal/value"
	"burlap/internal/vm"
	"burlap/internal/vmerrors"
)

// RegisterCrypto wires __burlap_hash, the one piece of SPEC_FULL.md's
// crypto surface, onto x/crypto/blake2b.
func RegisterCrypto(v *vm.VM) {
	v.EnableExtension("crypto")

	v.AddBuiltin("__burlap_hash", func(vm *vm.VM, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, vmerrors.New("__burlap_hash(data) takes 1 argument")
		}
		sum := blake2b.Sum256([]byte(args[0].ToString()))
		return value.Str(hex.EncodeToString(sum[:])), nil
	})
}
