package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a cleanup function called during shutdown
type ShutdownFunc func(context.Context) error

type namedServer struct {
	name   string
	server *http.Server
}

// ShutdownManager handles graceful shutdown of the service's HTTP servers and
// registered cleanup functions
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu            sync.Mutex
	servers       []namedServer
	shutdownFuncs []ShutdownFunc
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// AddServer registers an HTTP server to shut down gracefully
func (sm *ShutdownManager) AddServer(name string, server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, namedServer{name: name, server: server})
}

// RegisterShutdownFunc registers a cleanup function to run after the servers
// stop accepting requests
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, fn)
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains servers and
// runs cleanup functions within the configured timeout
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Infof("Received signal %s, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	return sm.Shutdown(ctx)
}

// Shutdown drains servers and runs cleanup functions. Exposed separately from
// WaitForShutdown for tests and embedding.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	servers := sm.servers
	funcs := sm.shutdownFuncs
	sm.mu.Unlock()

	var errs []error

	for _, ns := range servers {
		sm.logger.Infof("Shutting down %s server", ns.name)
		if err := ns.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Errorf("%s server shutdown error", ns.name)
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", ns.name, err))
		}
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(funcs))

	for i, fn := range funcs {
		wg.Add(1)
		go func(index int, shutdownFn ShutdownFunc) {
			defer wg.Done()
			if err := shutdownFn(ctx); err != nil {
				sm.logger.WithError(err).Errorf("Shutdown function %d failed", index)
				errChan <- err
			}
		}(i, fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("Shutdown timeout reached, forcing shutdown")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}
