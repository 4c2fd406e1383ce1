package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/backend/local"
	"supabase-tasks/app/backend/supabase"
	"supabase-tasks/app/config"
	"supabase-tasks/app/controllers"
	"supabase-tasks/app/logging"
	"supabase-tasks/app/routes"
	"supabase-tasks/app/services"
	"supabase-tasks/app/session"
	"supabase-tasks/app/views"
)

func main() {
	log := logging.New(os.Stdout)
	if err := run(log); err != nil {
		log.Error("server_failed", map[string]any{"err": err})
		os.Exit(1)
	}
}

func run(log *logging.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identity, tasks, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	client := backend.New(identity, tasks, log)
	provider := session.NewProvider(client, log)
	defer provider.Close()
	taskService := services.NewTaskService(client, log)
	defer taskService.Close()

	renderer, err := views.New()
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Deps{
		Provider: provider,
		Cookies:  session.NewCookieStore(cfg.SessionSecret, cfg.CookieSecure),
		Views:    renderer,
		Auth:     controllers.NewAuthController(client, renderer, log),
		Tasks:    controllers.NewTaskController(taskService, renderer, log),
		Log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_started", map[string]any{"addr": cfg.Addr, "backend": cfg.Backend})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_stopping", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openBackend builds the identity service and task table selected by
// TASKS_BACKEND.
func openBackend(ctx context.Context, cfg config.Config) (backend.Identity, backend.TaskTable, func(), error) {
	switch cfg.Backend {
	case config.BackendNeo4j:
		driver, err := config.InitNeo4j(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("neo4j driver: %w", err)
		}
		closeDriver := func() { driver.Close(context.Background()) }
		if err := driver.VerifyConnectivity(ctx); err != nil {
			closeDriver()
			return nil, nil, nil, fmt.Errorf("neo4j connectivity: %w", err)
		}
		if err := local.EnsureSchema(ctx, driver); err != nil {
			closeDriver()
			return nil, nil, nil, fmt.Errorf("neo4j schema: %w", err)
		}
		tokens := local.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL)
		return local.NewIdentity(local.NewNeo4jUsers(driver), tokens), local.NewTaskTable(driver, tokens), closeDriver, nil
	default:
		sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("supabase client: %w", err)
		}
		return sb.Auth(), sb.TaskTable(cfg.TaskTable), func() {}, nil
	}
}
