package models

import (
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AddressRecord is the persisted state of one deployed unit
type AddressRecord struct {
	UnitName              string         `json:"unitName"`
	Contract              string         `json:"contract,omitempty"`
	ProxyAddress          common.Address `json:"proxyAddress"`
	ImplementationAddress common.Address `json:"implementationAddress"`
	ImplementationHash    common.Hash    `json:"implementationHash"`
	ProxyAdmin            common.Address `json:"proxyAdmin"`
	Initialized           bool           `json:"initialized"`
	DeployedAtBlock       uint64         `json:"deployedAtBlock"`

	// Audit fields
	Dependencies []string  `json:"dependencies,omitempty"`
	InitArgs     []string  `json:"initArgs,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the record
func (r *AddressRecord) Clone() *AddressRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Dependencies = slices.Clone(r.Dependencies)
	c.InitArgs = slices.Clone(r.InitArgs)
	return &c
}
