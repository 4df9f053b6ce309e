package cli

import (
	"fmt"

	"github.com/romdeck/romdeck/internal/api"
	"github.com/romdeck/romdeck/internal/catalog"
	"github.com/romdeck/romdeck/internal/config"
	"github.com/romdeck/romdeck/internal/download"
	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/notify"
	"github.com/romdeck/romdeck/internal/progress"
)

// newAPIClient builds an API client from config and flag overrides.
func newAPIClient() (*api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	apiClient, err := api.NewClient(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return apiClient, nil
}

// services bundles the live components download commands operate on: the API
// client, the progress channel manager, the orchestrator, and the event bus
// their lifecycle events flow through.
type services struct {
	cfg   *config.Config
	api   *api.Client
	bus   *events.EventBus
	cache *catalog.Cache
	jobs  *progress.Manager
	orch  *download.Orchestrator
}

// newServices wires the component graph. Desktop notifications are attached
// when enabled in config.
func newServices() (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	apiClient, err := api.NewClient(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	bus := events.NewEventBus(0)
	cache := catalog.NewCache()
	jobs := progress.NewManager(progress.NewWebSocketDialer(apiClient), cache, bus, GetLogger())
	orch := download.NewOrchestrator(apiClient, jobs, GetLogger())

	if cfg.Notifications.Enabled {
		notifier := notify.NewNotifier(cfg.Notifications, GetLogger())
		go notifier.Watch(bus.Subscribe(events.EventJobDone))
	}

	return &services{
		cfg:   cfg,
		api:   apiClient,
		bus:   bus,
		cache: cache,
		jobs:  jobs,
		orch:  orch,
	}, nil
}

// shutdown closes all progress channels and the event bus.
func (s *services) shutdown() {
	s.jobs.CloseAll()
	s.bus.Close()
}
