//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/catapult/internal/adapters"
	"github.com/trebuchet-org/catapult/internal/config"
	"github.com/trebuchet-org/catapult/internal/logging"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, func(), error) {
	wire.Build(
		config.Provider,
		logging.LoggingSet,

		adapters.AllAdapters,

		usecase.NewOrchestrateDeployment,
		usecase.NewDeployUnits,
		usecase.NewListRecords,
		usecase.NewShowRecord,

		NewApp,
	)
	return nil, nil, nil
}

// InitNetworks wires the networks listing, which needs no selected network
func InitNetworks(v *viper.Viper) (*usecase.ListNetworks, error) {
	wire.Build(
		config.Provider,
		adapters.NetworkSet,
		usecase.NewListNetworks,
	)
	return nil, nil
}
