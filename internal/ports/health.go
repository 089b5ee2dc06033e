package ports

import "context"

// DependencyPinger is implemented by every backing service the health report checks.
type DependencyPinger interface {
	Ping(ctx context.Context) error
}
