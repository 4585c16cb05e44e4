package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when StartAll is called twice
var ErrAlreadyRunning = errors.New("workers already running")

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Manager starts and stops background workers together
type Manager struct {
	workers []Worker
	started []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewManager creates a new worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// Register adds a worker to be managed
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered",
		zap.String("worker_name", w.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts every registered worker. If one fails the workers
// started before it are stopped again and the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.started = m.started[:0]

	for _, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			cancel()
			m.stopStarted()
			return fmt.Errorf("failed to start worker %s: %w", w.Name(), err)
		}
		m.started = append(m.started, w)
		m.logger.Info("Worker started", zap.String("worker_name", w.Name()))
	}

	m.cancel = cancel
	m.isRunning = true
	return nil
}

// StopAll cancels the shared context and stops workers in reverse order
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		m.logger.Warn("Workers not running, nothing to stop")
		return nil
	}
	m.isRunning = false

	if m.cancel != nil {
		m.cancel()
	}

	if failed := m.stopStarted(); failed > 0 {
		return fmt.Errorf("failed to stop %d workers", failed)
	}

	m.logger.Info("All workers stopped successfully")
	return nil
}

func (m *Manager) stopStarted() int {
	failed := 0
	for i := len(m.started) - 1; i >= 0; i-- {
		w := m.started[i]
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			failed++
			continue
		}
		m.logger.Info("Worker stopped", zap.String("worker_name", w.Name()))
	}
	m.started = m.started[:0]
	return failed
}

// Count returns the number of registered workers
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
