// Package service orders the startup and teardown of long-lived resources
package service

// Service defines the lifecycle interface for process-level resources
// Services manage the reactor, the terminal session and the host interests
//
// Lifecycle:
//  1. Construction
//  2. Start() - acquire the resource
//  3. [runtime operation]
//  4. Stop() - release it
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Start before this one
	// Return nil or empty slice if no dependencies
	Dependencies() []string

	// Start acquires the resource
	Start() error

	// Stop releases the resource
	// Must be idempotent - safe to call multiple times
	Stop() error
}

// Func adapts plain functions to Service
type Func struct {
	ID       string
	Requires []string
	OnStart  func() error
	OnStop   func() error
}

// Name implements Service
func (f *Func) Name() string { return f.ID }

// Dependencies implements Service
func (f *Func) Dependencies() []string { return f.Requires }

// Start implements Service; a nil OnStart is a no-op
func (f *Func) Start() error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart()
}

// Stop implements Service; a nil OnStop is a no-op
func (f *Func) Stop() error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop()
}
