// Gray Logic HASS - Home Assistant data service
//
// This is the main entry point for the Gray Logic HASS service. It keeps
// live connections to one or more Home Assistant servers and serves their
// entities, states, services and tags to the Node-RED editor over HTTP.
//
// Servers are reached either through the Home Assistant websocket API or
// through the mqtt_statestream integration on the shared MQTT broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-hass/internal/api"
	"github.com/nerrad567/gray-logic-hass/internal/auth"
	"github.com/nerrad567/gray-logic-hass/internal/discovery"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hass/internal/instance"
	"github.com/nerrad567/gray-logic-hass/internal/metrics"
	"github.com/nerrad567/gray-logic-hass/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// statusInterval is how often server connection states are sampled.
	statusInterval = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic HASS",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Instance registry, seeded from the servers section
	registry := instance.NewRegistry(instance.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("instance"))
	if seedErr := registry.Seed(ctx, instance.FromConfig(cfg.Servers, cfg.MQTT.StatestreamBase)); seedErr != nil {
		return fmt.Errorf("seeding servers: %w", seedErr)
	}
	stats := registry.Stats()
	log.Info("server registry initialised", "servers", stats.Total, "enabled", stats.Enabled)

	m := metrics.New()

	// Connect to MQTT broker (only when a statestream server needs it)
	var mqttClient *mqtt.Client
	if needsMQTT(registry.List()) {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT not needed, no statestream servers enabled")
	}

	// Connect to InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Connect every enabled server
	var history stateRecorder
	if influxClient != nil {
		history = influxClient
	}
	sources, err := startSources(ctx, sourceDeps{
		cfg:      cfg,
		registry: registry,
		mqtt:     mqttClient,
		metrics:  m,
		history:  history,
		logger:   log,
	})
	if err != nil {
		return fmt.Errorf("starting servers: %w", err)
	}
	defer func() {
		log.Info("closing server connections", "count", len(sources))
		closeSources(registry, sources, log)
	}()

	// Connection state watcher
	watcher := newStatusWatcher(registry, m, log.Component("status"))
	if mqttClient != nil {
		watcher.publisher = mqttClient
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			watcher.forget()
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	}
	if influxClient != nil {
		watcher.history = influxClient
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watcher.run(watchCtx, statusInterval)
	}()
	defer func() {
		stopWatch()
		<-watchDone
	}()

	// LAN discovery
	discoverer := discovery.New(discovery.NewZeroconfBrowser(), discovery.Config{
		Service: cfg.Discovery.Service,
		Domain:  cfg.Discovery.Domain,
		Window:  cfg.Discovery.Window,
	})
	discoverer.SetLogger(log.Component("discovery"))

	// Operators allowed to log in
	var users *auth.Users
	if cfg.Security.AuthEnabled {
		users, err = auth.NewUsers(cfg.Security.Users)
		if err != nil {
			return fmt.Errorf("loading users: %w", err)
		}
		if users.Len() == 0 {
			log.Warn("authentication enabled but no users configured, protected routes are unreachable")
		}
	} else {
		log.Warn("authentication disabled, admin routes are open")
	}

	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		Security:   cfg.Security,
		Logger:     log.Component("api"),
		Instances:  registry,
		Users:      users,
		Discoverer: discoverer,
		Metrics:    m,
		DB:         db,
		MQTT:       mqttClient,
		Site:       cfg.Site,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. status watcher
	// 3. server connections
	// 4. InfluxDB (if enabled)
	// 5. MQTT (if connected)
	// 6. Database

	log.Info("Gray Logic HASS stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// needsMQTT reports whether any enabled server reads from the broker.
func needsMQTT(instances []instance.Instance) bool {
	for _, inst := range instances {
		if inst.Enabled && inst.Kind == instance.KindStatestream {
			return true
		}
	}
	return false
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when not in use.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Home Assistant connections are not checked: a server that is down at
	// startup is retried in the background and reported as unavailable.
	return nil
}
