package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Outcome is the per-unit result of a run
type Outcome string

const (
	OutcomeReused   Outcome = "reused"
	OutcomeDeployed Outcome = "deployed"
	OutcomeUpgraded Outcome = "upgraded"
	OutcomeFailed   Outcome = "failed"
	OutcomePlanned  Outcome = "planned"
)

// UnitReport summarizes what happened to one unit
type UnitReport struct {
	Unit                  string
	Decision              Decision
	Outcome               Outcome
	ProxyAddress          common.Address
	ImplementationAddress common.Address
	BlockNumber           uint64
	Duration              time.Duration
	Err                   error
}

// PlanStep is one entry of a computed but unexecuted run
type PlanStep struct {
	Unit     *DeploymentUnit
	Record   *AddressRecord
	Decision Decision
}
