// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txcost prices coinjoin inputs and outputs. It maps the script types
// a participant may register to their virtual sizes and, given a fee rate, to
// the fee paid for creating an output in the current transaction and the fee
// paid later for spending it as an input.
package txcost

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

var (
	// ErrUnsupportedScriptType is returned when a script type or pkScript
	// is neither P2WPKH nor P2TR.
	ErrUnsupportedScriptType = errors.New("unsupported script type")
)

const (
	// P2WPKHInputVSize is the virtual size of a P2WPKH input including
	// its witness.
	P2WPKHInputVSize = 69

	// P2TRInputVSize is the virtual size of a key path spend P2TR input
	// including its witness.
	P2TRInputVSize = 58
)

// ScriptType identifies the spending condition of an output. Only the script
// types that can be registered in a round are represented.
type ScriptType uint8

const (
	// P2WPKH is a native segwit v0 pay-to-witness-pubkey-hash output.
	P2WPKH ScriptType = iota

	// P2TR is a segwit v1 pay-to-taproot output.
	P2TR
)

// AllScriptTypes lists every supported script type.
var AllScriptTypes = []ScriptType{P2WPKH, P2TR}

// String returns a human-readable name of the script type.
func (s ScriptType) String() string {
	switch s {
	case P2WPKH:
		return "p2wpkh"
	case P2TR:
		return "p2tr"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// IsValid reports whether the script type is supported.
func (s ScriptType) IsValid() bool {
	return s == P2WPKH || s == P2TR
}

// PkScriptSize returns the size of the output script of this type.
func (s ScriptType) PkScriptSize() int {
	switch s {
	case P2TR:
		return txsizes.P2TRPkScriptSize
	default:
		return txsizes.P2WPKHPkScriptSize
	}
}

// InputVSize returns the virtual size of spending an output of this type.
func (s ScriptType) InputVSize() int {
	switch s {
	case P2TR:
		return P2TRInputVSize
	default:
		return P2WPKHInputVSize
	}
}

// OutputVSize returns the virtual size of an output of this type, which is
// the serialized size of a transaction output carrying its pkScript.
func (s ScriptType) OutputVSize() int {
	txOut := wire.NewTxOut(0, make([]byte, s.PkScriptSize()))

	return txOut.SerializeSize()
}

// ParseScriptType parses the name of a script type as produced by String.
func ParseScriptType(name string) (ScriptType, error) {
	switch name {
	case "p2wpkh", "P2WPKH", "segwit", "bech32":
		return P2WPKH, nil

	case "p2tr", "P2TR", "taproot":
		return P2TR, nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedScriptType, name)
	}
}

// ScriptTypeFromPkScript classifies an output script.
func ScriptTypeFromPkScript(pkScript []byte) (ScriptType, error) {
	switch class := txscript.GetScriptClass(pkScript); class {
	case txscript.WitnessV0PubKeyHashTy:
		return P2WPKH, nil

	case txscript.WitnessV1TaprootTy:
		return P2TR, nil

	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedScriptType, class)
	}
}
