// Package component defines the lifecycle contract shared by every pipeline
// component and the dependency bundle they are constructed with.
package component

import (
	"context"
	"time"
)

// State represents the current lifecycle state of a component
type State int

const (
	// StateCreated indicates component was created but not initialized
	StateCreated State = iota
	// StateInitialized indicates component was initialized but not started
	StateInitialized
	// StateStarted indicates component is running
	StateStarted
	// StateStopped indicates component was stopped
	StateStopped
	// StateFailed indicates component failed during lifecycle operation
	StateFailed
)

// String returns a string representation of the component state
func (cs State) String() string {
	switch cs {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Metadata describes a component for discovery and logging
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "storage", "router", "worker", "queue", "consumer", "gateway"
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HealthStatus reports the current health of a component
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// LifecycleComponent defines components that support full lifecycle management
// following the unified pattern:
//   - Initialize() error                 // Setup/create only, NO context
//   - Start(ctx context.Context) error   // Start with context passed through
//   - Stop(timeout time.Duration) error  // Stop with timeout for graceful shutdown
//
// Components never store the context they receive in Start; the caller owns
// cancellation and passes child contexts down per invocation.
type LifecycleComponent interface {
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
	Meta() Metadata
	Health() HealthStatus
}
