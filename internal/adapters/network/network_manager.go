package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	DetectTimeout = 10 * time.Second
	maxIPBodySize = 64 // an IPv4 answer is never longer than this
)

// DefaultIPServices are asked in this order, the first valid IPv4 wins
var DefaultIPServices = []string{
	"https://ifconfig.me/ip",
	"https://ipecho.net/plain",
	"https://icanhazip.com",
	"https://ident.me",
}

// HostNetworkManager detects the public address and drives ufw
type HostNetworkManager struct {
	exec     ports.CommandExecutor
	packages ports.PackageManager
	client   *http.Client
	services []string
	log      *logrus.Entry

	// localAddrs lists the IPv4 addresses configured on the host interfaces
	localAddrs func() ([]net.IP, error)
}

func NewHostNetworkManager(exec ports.CommandExecutor, packages ports.PackageManager, services []string, log *logrus.Entry) *HostNetworkManager {
	if len(services) == 0 {
		services = DefaultIPServices
	}
	return &HostNetworkManager{
		exec:       exec,
		packages:   packages,
		client:     cleanhttp.DefaultClient(),
		services:   services,
		log:        log,
		localAddrs: netlinkIPv4Addrs,
	}
}

var _ ports.NetworkManager = (*HostNetworkManager)(nil)

// DetectPublicIP walks the detection services, a failing service is skipped.
// When every service fails, a public address configured on a local interface is used
func (m *HostNetworkManager) DetectPublicIP(ctx context.Context) (string, error) {
	for _, service := range m.services {
		ip, err := m.ask(ctx, service)
		if err != nil {
			m.log.WithField("service", service).WithError(err).Debug("ip detection service failed")
			continue
		}
		m.log.WithFields(logrus.Fields{"service": service, "ip": ip}).Info("public ip detected")
		return ip, nil
	}

	addrs, err := m.localAddrs()
	if err != nil {
		m.log.WithError(err).Debug("unable to list local addresses")
	}
	for _, addr := range addrs {
		if IsPublicIPv4(addr.String()) {
			m.log.WithField("ip", addr.String()).Info("public ip taken from local interface")
			return addr.String(), nil
		}
	}
	return "", fmt.Errorf("no detection service answered: %w", core.ErrNetworkUnavailable)
}

func (m *HostNetworkManager) ask(ctx context.Context, service string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DetectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, core.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIPBodySize))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if !IsValidIPv4(ip) {
		return "", fmt.Errorf("not an IPv4 address: %q", ip)
	}
	return ip, nil
}

func netlinkIPv4Addrs() ([]net.IP, error) {
	addrs, err := netlink.AddrList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if a.IPNet != nil {
			ips = append(ips, a.IP)
		}
	}
	return ips, nil
}

// ConfigureFirewall turns ufw on and opens every port. A port that fails is reported and the
// others are still tried
func (m *HostNetworkManager) ConfigureFirewall(ctx context.Context, openPorts []string) error {
	status, err := m.exec.Execute(ctx, ports.Command{
		Argv:     []string{"ufw", "status"},
		Elevated: true,
		Reason:   "Read firewall status",
	})
	var notFound *core.ExecutableNotFoundError
	if errors.As(err, &notFound) && m.packages != nil {
		m.log.Info("ufw not installed, installing it")
		if err := m.packages.EnsurePackages(ctx, []string{"ufw"}); err != nil {
			return fmt.Errorf("unable to install ufw: %w", err)
		}
		status, err = m.exec.Execute(ctx, ports.Command{Argv: []string{"ufw", "status"}, Elevated: true, Reason: "Read firewall status"})
	}
	if err != nil {
		return fmt.Errorf("unable to read the firewall status: %w", err)
	}

	if strings.Contains(strings.ToLower(status.Output), "inactive") {
		if _, err := m.exec.Execute(ctx, ports.Command{
			Argv:     []string{"ufw", "--force", "enable"},
			Elevated: true,
			Reason:   "Enable the firewall",
		}); err != nil {
			return fmt.Errorf("unable to enable the firewall: %w", err)
		}
		m.log.Info("firewall enabled")
	}

	var failed []string
	for _, port := range openPorts {
		if _, err := m.exec.Execute(ctx, ports.Command{
			Argv:     []string{"ufw", "allow", port},
			Elevated: true,
			Reason:   "Open port " + port,
		}); err != nil {
			m.log.WithField("port", port).WithError(err).Warn("unable to open port")
			failed = append(failed, port)
			continue
		}
		m.log.WithField("port", port).Debug("port opened")
	}
	if len(failed) > 0 {
		return fmt.Errorf("only %d/%d ports opened, failed: %s", len(openPorts)-len(failed), len(openPorts), strings.Join(failed, ", "))
	}
	return nil
}
