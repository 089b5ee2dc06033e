package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

type ServiceCtx struct {
	deps              *dependencies
	dependencyOptions []DependencyOption
	shutdownChannel   chan os.Signal
	serverCtx         context.Context
	serverStopFunc    context.CancelFunc
	serverReady       chan struct{}
}

func New(opts ...ServiceOption) *ServiceCtx {
	ctx := &ServiceCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(ctx)
	}

	return ctx
}

func (c *ServiceCtx) Run() {
	if err := c.build(); err != nil {
		log.Fatalf("failed to build service: %v", err)
	}

	c.startService()
	c.shutdownHook()
	c.monitorConfigChanges()

	select {
	case <-c.serverCtx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.shutdown()
}

func (c *ServiceCtx) build() error {
	c.serverCtx, c.serverStopFunc = context.WithCancel(context.Background())

	var err error

	c.deps, err = initializeDependencies(c.serverCtx, c.dependencyOptions...)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	return nil
}

func (c *ServiceCtx) startService() {
	cfg := c.deps.config.PublicHTTPServer
	addr := net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	go func() {
		c.deps.infra.logger.Info().
			Str("address", addr).
			Str("environment", c.deps.config.App.Env.Name).
			Msg("starting the http server")

		if c.serverReady != nil {
			close(c.serverReady)
		}

		if err := c.deps.infra.publicHttpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.deps.infra.logger.Error().Err(err).Msg("public http server stopped")
			c.serverStopFunc()
		}
	}()

	c.startAdminServer()
}

func (c *ServiceCtx) startAdminServer() {
	if c.deps.infra.adminHttpServer == nil {
		return
	}

	cfg := c.deps.config.AdminHTTPServer
	addr := net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on admin server %s: %v", addr, err)
	}

	go func() {
		c.deps.infra.logger.Info().
			Str("address", addr).
			Msg("starting the admin http server")

		if err := c.deps.infra.adminHttpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.deps.infra.logger.Error().Err(err).Msg("admin http server stopped")
		}
	}()
}

// monitorConfigChanges re-reads the Vault secrets on SIGHUP.
func (c *ServiceCtx) monitorConfigChanges() {
	if c.deps.configLoader == nil {
		return
	}

	reloadErrors := c.deps.configLoader.WatchConfigSignals(c.serverCtx)
	go func() {
		for err := range reloadErrors {
			if err != nil {
				c.deps.infra.logger.Error().Err(err).Msg("config reload failed")
			} else {
				c.deps.infra.logger.Info().Msg("config reloaded successfully")
			}
		}
	}()
}

func (c *ServiceCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
}

func (c *ServiceCtx) shutdown() {
	c.deps.infra.logger.Info().Msg("shutting down service...")

	c.serverStopFunc()

	// serverCtx is already cancelled, the grace period hangs off a fresh context.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.config.PublicHTTPServer.ShutdownTimeout)
	defer cancel()

	go func() {
		<-shutdownCtx.Done()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			c.deps.infra.logger.Error().Msg("graceful shutdown timed out.. forcing exit.")
			os.Exit(1)
		}
	}()

	c.drainServers(shutdownCtx)
	c.cleanup(shutdownCtx)

	c.deps.infra.logger.Info().Msg("service shutdown complete")
}

// WaitForServer blocks until the public http server is accepting connections.
// Only services created with WithWaitingForServer block.
//
// Example:
//
//	srv := runtime.New(runtime.WithWaitingForServer())
//	go srv.Run()
//
//	srv.WaitForServer()
func (c *ServiceCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
	}
}

// drainServers stops accepting requests before the stores they use are closed.
func (c *ServiceCtx) drainServers(shutdownCtx context.Context) {
	servers := map[string]*http.Server{
		"public_http_server": c.deps.infra.publicHttpServer,
		"admin_http_server":  c.deps.infra.adminHttpServer,
	}

	for name, server := range servers {
		if server == nil {
			continue
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			c.deps.infra.logger.Error().
				Err(err).
				Str("server", name).
				Msg("failed to drain the server gracefully")
		}
	}
}

func (c *ServiceCtx) cleanup(shutdownCtx context.Context) {
	c.deps.infra.logger.Info().Msg("cleaning up resources...")

	for resource, cleanupFn := range c.deps.cleanupFuncs {
		if err := cleanupFn(shutdownCtx); err != nil {
			c.deps.infra.logger.Error().
				Err(err).
				Str("resource", resource).
				Msg("failed to shutdown the resource gracefully")
		}
	}

	c.deps.infra.logger.Info().Msg("cleanup completed")
}
