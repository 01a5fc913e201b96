package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BytecodeObject is the bytecode section of a compilation artifact. Foundry
// writes it as an object with an "object" field, Hardhat as a plain hex string.
type BytecodeObject struct {
	Object         string         `json:"object"`
	SourceMap      string         `json:"sourceMap,omitempty"`
	LinkReferences map[string]any `json:"linkReferences,omitempty"`
}

func (b *BytecodeObject) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.Object = s
		return nil
	}
	type plain BytecodeObject
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("bytecode must be a hex string or an object: %w", err)
	}
	*b = BytecodeObject(p)
	return nil
}

// HasCode reports whether the bytecode carries anything beyond a 0x prefix
func (b BytecodeObject) HasCode() bool {
	return strings.TrimPrefix(b.Object, "0x") != ""
}

// Artifact is a compiled contract as produced by Foundry or Hardhat
type Artifact struct {
	ContractName     string          `json:"contractName,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         BytecodeObject  `json:"bytecode"`
	DeployedBytecode BytecodeObject  `json:"deployedBytecode"`
}
