package ports

import (
	"context"

	"nymctl/internal/core"
)

// ReleaseIndex is where published node binaries come from
type ReleaseIndex interface {
	// Latest returns the newest release together with the asset matching name.
	// exact=false accepts any asset whose name starts with name
	Latest(ctx context.Context, name string, exact bool) (core.Release, error)
	// Download fetches the asset of rel into dest
	Download(ctx context.Context, rel core.Release, dest string) error
}

// BalanceQuerier reads an account balance, it never changes anything on chain
type BalanceQuerier interface {
	// Balance returns the NYM balance of address
	Balance(ctx context.Context, address string) (float64, error)
}
