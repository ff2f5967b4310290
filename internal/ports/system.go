package ports

import (
	"context"

	"nymctl/internal/core"
)

// PackageManager wraps the distribution package tooling
type PackageManager interface {
	UpdateSystem(ctx context.Context) error
	EnsurePackages(ctx context.Context, packages []string) error
}

// ServiceManager installs and controls the supervisor unit of the node
type ServiceManager interface {
	// Install writes the unit, reloads the supervisor, enables it at boot and starts it
	Install(ctx context.Context, spec core.ServiceSpec) error
	Restart(ctx context.Context, name string) error
	// InvokingUser is the non elevated user that started us, even under sudo
	InvokingUser() (name string, home string, err error)
}

// BinaryStore places node binaries on the host
type BinaryStore interface {
	// Locate finds the installed node binary
	Locate() (string, error)
	// Install moves a downloaded binary into place and makes it executable
	Install(ctx context.Context, src, dest string) error
	// Replace backs up live next to itself, then copies candidate over it. It returns the backup path
	Replace(ctx context.Context, candidate, live string) (string, error)
}
