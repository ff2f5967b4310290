package ports

import "context"

// NetworkManager is the contract to interact with the network side of the host
type NetworkManager interface {
	// DetectPublicIP asks the IP detection services in order and returns the first valid IPv4
	DetectPublicIP(ctx context.Context) (string, error)

	// ConfigureFirewall makes sure the firewall is on and opens the given ports.
	// It returns an error when at least one port could not be opened
	ConfigureFirewall(ctx context.Context, ports []string) error
}
