package app

import (
	"log/slog"

	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	Config *config.RuntimeConfig
	Log    *slog.Logger

	DeployUnits *usecase.DeployUnits
	ListRecords *usecase.ListRecords
	ShowRecord  *usecase.ShowRecord
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	deployUnits *usecase.DeployUnits,
	listRecords *usecase.ListRecords,
	showRecord *usecase.ShowRecord,
) (*App, error) {
	return &App{
		Config:      cfg,
		Log:         log,
		DeployUnits: deployUnits,
		ListRecords: listRecords,
		ShowRecord:  showRecord,
	}, nil
}
