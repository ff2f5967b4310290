package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func plainServer(t *testing.T, status int, body string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestDetectPublicIPSkipsBadServices(t *testing.T) {
	services := []string{
		plainServer(t, http.StatusInternalServerError, "oops"),
		plainServer(t, http.StatusOK, "<html>not an ip</html>"),
		plainServer(t, http.StatusOK, "2001:db8::1\n"),
		plainServer(t, http.StatusOK, "198.51.100.23\n"),
		plainServer(t, http.StatusOK, "203.0.113.9"),
	}
	m := NewHostNetworkManager(nil, nil, services, testLogger())
	m.localAddrs = func() ([]net.IP, error) { t.Fatal("local fallback must not be used"); return nil, nil }

	ip, err := m.DetectPublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.23", ip)
}

func TestDetectPublicIPFallsBackToLocalInterface(t *testing.T) {
	m := NewHostNetworkManager(nil, nil, []string{plainServer(t, http.StatusBadGateway, "")}, testLogger())
	m.localAddrs = func() ([]net.IP, error) {
		return []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("10.0.0.4"), net.ParseIP("198.51.100.40")}, nil
	}

	ip, err := m.DetectPublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.40", ip)
}

func TestDetectPublicIPNothingAvailable(t *testing.T) {
	m := NewHostNetworkManager(nil, nil, []string{plainServer(t, http.StatusOK, "nope")}, testLogger())
	m.localAddrs = func() ([]net.IP, error) { return nil, errors.New("no netlink") }

	_, err := m.DetectPublicIP(context.Background())
	assert.ErrorIs(t, err, core.ErrNetworkUnavailable)
}

func TestIPv4Checks(t *testing.T) {
	assert.True(t, IsValidIPv4("203.0.113.7"))
	assert.True(t, IsValidIPv4(" 10.0.0.1\n"))
	assert.False(t, IsValidIPv4("::1"))
	assert.False(t, IsValidIPv4("203.0.113"))
	assert.True(t, IsPublicIPv4("198.51.100.1"))
	assert.False(t, IsPublicIPv4("192.168.1.1"))
	assert.False(t, IsPublicIPv4("127.0.0.1"))
}

type ufwExecutor struct {
	status string
	fail   map[string]bool
	calls  [][]string
}

func (u *ufwExecutor) Execute(ctx context.Context, cmd ports.Command) (ports.ExecResult, error) {
	u.calls = append(u.calls, cmd.Argv)
	if !cmd.Elevated {
		return ports.ExecResult{}, errors.New("ufw must be elevated")
	}
	if len(cmd.Argv) == 2 && cmd.Argv[1] == "status" {
		return ports.ExecResult{Output: u.status}, nil
	}
	if len(cmd.Argv) == 3 && cmd.Argv[1] == "allow" && u.fail[cmd.Argv[2]] {
		return ports.ExecResult{ExitCode: 1}, &core.CommandFailedError{Argv: cmd.Argv, Code: 1}
	}
	return ports.ExecResult{}, nil
}

func TestConfigureFirewallEnablesAndOpensPorts(t *testing.T) {
	exec := &ufwExecutor{status: "Status: inactive"}
	m := NewHostNetworkManager(exec, nil, nil, testLogger())

	require.NoError(t, m.ConfigureFirewall(context.Background(), []string{"8080", "1789"}))
	assert.Equal(t, [][]string{
		{"ufw", "status"},
		{"ufw", "--force", "enable"},
		{"ufw", "allow", "8080"},
		{"ufw", "allow", "1789"},
	}, exec.calls)
}

func TestConfigureFirewallReportsPartialFailure(t *testing.T) {
	exec := &ufwExecutor{status: "Status: active", fail: map[string]bool{"1790": true}}
	m := NewHostNetworkManager(exec, nil, nil, testLogger())

	err := m.ConfigureFirewall(context.Background(), []string{"8080", "1790", "9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2/3")
	// the remaining port is still attempted
	assert.Equal(t, []string{"ufw", "allow", "9000"}, exec.calls[len(exec.calls)-1])
}
