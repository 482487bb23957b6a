package repository

import (
	"context"
	"errors"
	"time"
)

// Keys under which the portal persists its state. They are the same keys a browser
// storage dump carries, so such dumps import unchanged.
const (
	ApplicationsKey = "ca_applications"
	StatisticsKey   = "ca_stats"
)

// ErrApplicationNotFound is returned when no application carries the requested id.
var ErrApplicationNotFound = errors.New("application not found")

// Backend is a whole-value key/value persistence layer. LoadAll returns nil, nil for an
// absent key; SaveAll replaces the stored value.
type Backend interface {
	LoadAll(ctx context.Context, key string) ([]byte, error)
	SaveAll(ctx context.Context, key string, payload []byte) error
}

// Locker is implemented by backends able to serialise read-modify-write cycles across
// processes sharing the same data.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Lease timings shared by the backends that lock through a stored lease rather than an OS lock.
// A holder that dies keeps others out for at most leaseTTL.
const (
	leaseTTL   = 10 * time.Second
	leaseRetry = 25 * time.Millisecond
)

// acquireLease calls try until it reports the lease taken, try fails, or ctx ends.
func acquireLease(ctx context.Context, try func() (bool, error)) error {
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leaseRetry):
		}
	}
}
