package cli

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"

	"github.com/wfunc/trexbooth/commentary"
	"github.com/wfunc/trexbooth/config"
	"github.com/wfunc/trexbooth/credentials"
	"github.com/wfunc/trexbooth/genie"
	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/monitor"
	"github.com/wfunc/trexbooth/persistence"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	monitor   *monitor.Monitor
	store     *persistence.Store
	completer commentary.Completer
	genie     *genie.Client
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{monitor: monitor.NewMonitor(monitor.Namespace)}

	workspace, err := newWorkspace(cfg)
	if err != nil {
		return nil, err
	}

	var source credentials.Source
	if cfg.Database.StaticCredentials() {
		source = credentials.Static{Credential: credentials.Credential{
			Username: cfg.Database.User,
			Token:    cfg.Database.Password,
		}}
	} else {
		source = credentials.NewDatabricksSource(workspace, cfg.Database.InstanceName)
	}
	provider := credentials.NewProvider(source, a.monitor)
	a.store = persistence.NewStore(provider, persistence.PostgresOpener(cfg.Database), a.monitor)

	switch {
	case cfg.LLM.BaseURL != "":
		a.completer = commentary.NewOpenAICompleter(cfg.LLM, nil)
	case workspace != nil:
		a.completer = commentary.NewDatabricksCompleter(workspace, cfg.LLM)
	default:
		logger.Log.Warn("no text generation endpoint configured, commentary will use fallback text")
	}

	if cfg.Genie.SpaceID != "" && workspace != nil {
		a.genie = genie.NewClient(genie.NewDatabricksAPI(workspace), cfg.Genie.SpaceID)
	}

	return a, nil
}

// newWorkspace returns nil when nothing needs the Databricks workspace. A
// workspace that cannot be configured is only fatal for database credentials.
func newWorkspace(cfg *config.Config) (*databricks.WorkspaceClient, error) {
	needDatabase := !cfg.Database.StaticCredentials()
	if !needDatabase && cfg.LLM.BaseURL != "" && cfg.Genie.SpaceID == "" {
		return nil, nil
	}

	workspace, err := databricks.NewWorkspaceClient()
	if err != nil {
		if needDatabase {
			return nil, fmt.Errorf("configure databricks workspace: %w", err)
		}
		logger.Log.Warnw("databricks workspace unavailable", "error", err)
		return nil, nil
	}
	return workspace, nil
}
