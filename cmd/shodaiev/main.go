// ShodaiEV site service.
//
// This is the main entry point for the ShodaiEV site-configuration service:
// the public site document, its admin console, and image uploads, served from
// one binary over a pluggable document store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/PawornpratKongdaeng/shodaiev/migrations"

	"github.com/PawornpratKongdaeng/shodaiev/internal/api"
	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/auth"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/config"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/database"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/filestore"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/firestore"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/logging"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/mongodb"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/mqtt"
	"github.com/PawornpratKongdaeng/shodaiev/internal/metrics"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
	"github.com/PawornpratKongdaeng/shodaiev/internal/upload"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load() //nolint:errcheck // optional file

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting ShodaiEV site service",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The database always holds the change log; with the sqlite backend it
	// holds the document too.
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	checks := map[string]api.HealthChecker{"database": db}

	backend, closeBackend, err := openBackend(ctx, cfg, db, checks)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	defer closeBackend(log)
	log.Info("site config store ready", "backend", backend.Name())

	// Announce changes over MQTT (optional)
	var notifier siteconfig.Notifier
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		notifier = mqtt.NewNotifier(mqttClient, mqttClient.Topics(), cfg.MQTT.QoS)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	recorder := metrics.New()

	store := siteconfig.NewStore(backend, siteconfig.Options{
		Timeout:  cfg.GetStoreTimeout(),
		CacheTTL: cfg.GetCacheTTL(),
		Logger:   log,
		Metrics:  recorder,
		Notifier: notifier,
	})

	// Seed or read the document once so a broken backend fails startup
	// and the file backend's directory exists before it is watched.
	if _, loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading site config: %w", loadErr)
	}

	// External edits to the JSON file drop the read cache.
	if cfg.Store.Backend == config.BackendFile && cfg.Store.File.Watch {
		watcher, watchErr := startWatcher(ctx, cfg.Store.File.Path, store, log)
		if watchErr != nil {
			return fmt.Errorf("watching %s: %w", cfg.Store.File.Path, watchErr)
		}
		defer watcher.Close() //nolint:errcheck // shutdown path
	}

	password := cfg.Security.Admin.Password
	if cfg.Security.Admin.PasswordHash != "" {
		password = cfg.Security.Admin.PasswordHash
	}
	gate, err := auth.NewGate(auth.GateConfig{
		Username:       cfg.Security.Admin.Username,
		Password:       password,
		Secret:         cfg.Security.Session.Secret,
		SessionTTL:     cfg.GetSessionTTL(),
		RevocationSize: cfg.Security.Session.RevocationSize,
	})
	if err != nil {
		return fmt.Errorf("creating admin gate: %w", err)
	}

	uploader, err := upload.NewLocal(cfg.Upload.Dir, cfg.Upload.PublicPrefix, cfg.Upload.MaxBytes)
	if err != nil {
		return fmt.Errorf("preparing uploads: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Site:     cfg.Site,
		Upload:   cfg.Upload,
		Security: cfg.Security,
		Logger:   log,
		Store:    store,
		Gate:     gate,
		Uploader: uploader,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Metrics:  recorder,
		Checks:   checks,
		PanelDir: os.Getenv("SHODAIEV_PANEL_DIR"),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains the change log)
	// 2. File watcher
	// 3. MQTT
	// 4. Store backend
	// 5. Database

	log.Info("ShodaiEV site service stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SHODAIEV_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SHODAIEV_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openBackend builds the configured document backend. Backends with a
// health check are added to checks; the returned func releases the backend.
func openBackend(ctx context.Context, cfg *config.Config, db *database.DB, checks map[string]api.HealthChecker) (siteconfig.Backend, func(*logging.Logger), error) {
	noop := func(*logging.Logger) {}

	switch cfg.Store.Backend {
	case config.BackendFile:
		return filestore.New(cfg.Store.File.Path), noop, nil

	case config.BackendSQLite:
		return database.NewDocumentBackend(db, database.DefaultDocumentID), noop, nil

	case config.BackendFirestore:
		b, err := firestore.Open(ctx, firestore.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			DatabaseID:      cfg.Firestore.DatabaseID,
			Collection:      cfg.Firestore.Collection,
			DocumentID:      cfg.Firestore.DocumentID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		checks["firestore"] = b
		return b, func(log *logging.Logger) {
			log.Info("closing Firestore client")
			if err := b.Close(); err != nil {
				log.Error("error closing Firestore", "error", err)
			}
		}, nil

	case config.BackendMongoDB:
		b, err := mongodb.Open(ctx, mongodb.Config{
			URI:            cfg.MongoDB.URI,
			Database:       cfg.MongoDB.Database,
			Collection:     cfg.MongoDB.Collection,
			DocumentID:     cfg.MongoDB.DocumentID,
			ConnectTimeout: cfg.GetMongoConnectTimeout(),
		})
		if err != nil {
			return nil, nil, err
		}
		checks["mongodb"] = b
		return b, func(log *logging.Logger) {
			log.Info("disconnecting from MongoDB")
			if err := b.Close(context.Background()); err != nil {
				log.Error("error closing MongoDB", "error", err)
			}
		}, nil

	case config.BackendMemory:
		return siteconfig.NewMemoryBackend(nil), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func startWatcher(ctx context.Context, path string, store *siteconfig.Store, log *logging.Logger) (*filestore.Watcher, error) {
	w, err := filestore.NewWatcher(path, func() {
		log.Info("site config file changed on disk, dropping cache", "path", path)
		store.Invalidate()
	}, log)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return w, nil
}
