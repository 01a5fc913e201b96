package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
}

// NetworkStatus represents the status of a network
type NetworkStatus struct {
	Name    string
	ChainID uint64
	Current bool
	Error   error
}

// ListNetworks lists the [rpc_endpoints] of the project and the chain each
// one answers for
type ListNetworks struct {
	endpoints map[string]string
	current   string
	prober    ChainProber
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(cfg *config.RuntimeConfig, prober ChainProber) *ListNetworks {
	uc := &ListNetworks{prober: prober}
	if cfg.Project != nil {
		uc.endpoints = cfg.Project.RPCEndpoints
	}
	if cfg.Network != nil {
		uc.current = cfg.Network.Name
	}
	return uc
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context) (*ListNetworksResult, error) {
	names := lo.Keys(uc.endpoints)
	slices.Sort(names)

	networks := make([]NetworkStatus, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status := NetworkStatus{Name: name, Current: name == uc.current}
		if url := uc.endpoints[name]; url == "" {
			status.Error = fmt.Errorf("empty RPC URL")
		} else {
			chainID, err := uc.prober.ChainID(ctx, url)
			if err != nil {
				status.Error = err
			} else {
				status.ChainID = chainID
			}
		}
		networks = append(networks, status)
	}

	return &ListNetworksResult{Networks: networks}, nil
}
