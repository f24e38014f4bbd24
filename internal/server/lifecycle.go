// Package server provides application lifecycle management: ordered service
// startup, shutdown on signal, and shutdown when the foreground service ends.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start begins the service. It should block until the service is stopped,
	// its work is finished, or an error occurs.
	Start() error
	// Stop gracefully stops the service.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function. A nil StopFn is a no-op.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order. The first
// service to return from Start, with or without an error, ends the run.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

type exit struct {
	name string
	err  error
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
	}
}

// Add registers a named service for lifecycle management.
// Services are started in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts all services and blocks until a termination signal is received
// (SIGINT or SIGTERM), ctx is cancelled, or any service returns from Start.
// Services are then stopped in reverse order.
//
// Postcondition: All services are stopped when this method returns. The
// returned error is the failure of the service that ended the run, if any.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	exitCh := make(chan exit, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service",
				zap.String("service", ns.name),
			)
			svcStart := time.Now()
			err := ns.service.Start()
			if err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				err = fmt.Errorf("service %s: %w", ns.name, err)
			}
			exitCh <- exit{name: ns.name, err: err}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case ex := <-exitCh:
		if ex.err != nil {
			l.logger.Error("service error, shutting down", zap.Error(ex.err))
			runErr = ex.err
		} else {
			l.logger.Info("service finished, shutting down",
				zap.String("service", ex.name),
			)
		}
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service",
			zap.String("service", ns.name),
		)
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
