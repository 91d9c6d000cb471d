package shared

import (
	"context"
	"fmt"

	"github.com/isaacphi/promptwheel/internal/appState"
	"github.com/isaacphi/promptwheel/internal/repository"
	"github.com/isaacphi/promptwheel/internal/repository/jsonfile"
	"github.com/isaacphi/promptwheel/internal/repository/sqlite"
	"github.com/isaacphi/promptwheel/internal/service"
)

// InitializePromptService builds the prompt service on the snapshot backend
// selected by the configuration. appState must be initialized first.
func InitializePromptService(ctx context.Context) (*service.PromptService, error) {
	app := appState.Get()
	cfg := app.Config

	var snapshots repository.SnapshotStore
	var err error
	switch cfg.Storage.Backend {
	case "sqlite":
		snapshots, err = sqlite.New(cfg.Storage.DBPath)
	default:
		snapshots, err = jsonfile.New(cfg.Storage.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Backend, err)
	}

	svc, err := service.NewPromptService(ctx, snapshots, cfg, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt service: %w", err)
	}
	return svc, nil
}
