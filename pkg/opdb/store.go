package opdb

import "context"

// Store is a namespaced key/value store for operational state that outlives
// the process: lease history and the last binding per interface.
type Store interface {
	Put(ctx context.Context, namespace, key string, value []byte) error
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Delete(ctx context.Context, namespace, key string) error
	Load(ctx context.Context, namespace string, fn LoadFunc) error
	Prune(ctx context.Context, namespace string, keep int) (int64, error)
	Clear(ctx context.Context, namespace string) error
	Close() error
}

// LoadFunc is called per entry in insertion order.
type LoadFunc func(key string, value []byte) error

const (
	NamespaceLeaseHistory = "dhcpv4_lease_history"
	NamespaceLeases       = "dhcpv4_leases"
)
