package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/userdeck-io/userdeck/internal/api"
	"github.com/userdeck-io/userdeck/internal/auth"
	"github.com/userdeck-io/userdeck/internal/config"
	"github.com/userdeck-io/userdeck/internal/service"
	"github.com/userdeck-io/userdeck/internal/store"
	"github.com/userdeck-io/userdeck/internal/supabase"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting userdeck API v%s with config: %s", version, *configPath)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Algorithm,
		time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	hasher := auth.NewPasswordHasher(cfg.PasswordCost)

	var client *supabase.Client
	if cfg.Supabase.URL != "" {
		client, err = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.ServiceRoleKey)
		if err != nil {
			log.Fatal(err)
		}
	}

	// The credential store is selected once at startup and injected; the
	// service layer never knows which backend it runs on.
	var userStore store.UserStore
	switch cfg.Store {
	case "supabase":
		if client == nil {
			log.Fatal("store is set to supabase but no supabase url is configured")
		}
		userStore = store.NewSupabaseStore(client)
	default:
		db, err := store.Open(cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			log.Fatal(err)
		}
		if err := store.Migrate(db, cfg.Database.Driver); err != nil {
			log.Fatal(err)
		}
		userStore = store.NewSQLStore(db)
	}

	users := service.NewUserService(userStore, hasher)

	var sessions *service.SessionGateway
	var registry *supabase.Registry
	if client != nil {
		sessions = service.NewSessionGateway(client)

		if cfg.Debug {
			registry = supabase.NewRegistry(cfg.Supabase.URL, cfg.Supabase.AnonKey)
			if _, err := registry.Subscribe("users", "*", func(ev supabase.ChangeEvent) {
				log.Printf("Realtime %s on %s", ev.Type, ev.Table)
			}); err != nil {
				log.Printf("Warning: realtime subscription failed: %v", err)
			}
		}
	}

	srv, err := api.NewApi(*cfg, users, sessions, tokens)
	if err != nil {
		log.Fatal(err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
		err = <-serveErr
	case err = <-serveErr:
	}

	if registry != nil {
		registry.Close()
	}
	if err != nil {
		log.Fatal(err)
	}
}
