package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

var errNoAnswer = errors.New("scripted console ran out of answers")

func testLogger() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

// scriptedConsole answers prompts from a queue and records everything it was told
type scriptedConsole struct {
	answers []string
	prompts []string
	lines   []string
}

func (c *scriptedConsole) Ask(prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if len(c.answers) == 0 {
		return "", errNoAnswer
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, nil
}

func (c *scriptedConsole) Confirm(prompt string) (bool, error) {
	a, err := c.Ask(prompt)
	if err != nil {
		return false, err
	}
	a = strings.ToLower(a)
	return a == "y" || a == "yes", nil
}

func (c *scriptedConsole) Section(title string)  { c.lines = append(c.lines, "section: "+title) }
func (c *scriptedConsole) Success(msg string)    { c.lines = append(c.lines, "ok: "+msg) }
func (c *scriptedConsole) Info(msg string)       { c.lines = append(c.lines, "info: "+msg) }
func (c *scriptedConsole) Warn(msg string)       { c.lines = append(c.lines, "warn: "+msg) }
func (c *scriptedConsole) Error(msg string)      { c.lines = append(c.lines, "error: "+msg) }
func (c *scriptedConsole) Print(text string)     { c.lines = append(c.lines, text) }
func (c *scriptedConsole) Highlight(l, v string) { c.lines = append(c.lines, l+": "+v) }
func (c *scriptedConsole) Step(current, total int, msg string) {
	c.lines = append(c.lines, fmt.Sprintf("step %d/%d %s", current, total, msg))
}

func (c *scriptedConsole) said(fragment string) bool {
	for _, l := range c.lines {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}

type fakeBalances struct {
	values []float64
	errs   []error
	calls  int
}

func (f *fakeBalances) Balance(ctx context.Context, address string) (float64, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if i >= len(f.values) {
		return f.values[len(f.values)-1], err
	}
	return f.values[i], err
}

func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

// host is one fake of every host facing port, each call is appended to calls
type host struct {
	calls []string

	exists      bool
	updateErr   error
	packagesErr error
	firewallErr error
	detectErr   error
	ip          string
	initErr     error
	descErr     error
	mnemonic    string
	bonding     core.BondingInfo
	sign        ports.SignResult
	signErr     error

	desc     core.Description
	descCfg  core.NodeConfig
	mnemCfg  core.NodeConfig
	sudoUser string // empty means the operator ran nymctl directly
	unit     core.ServiceSpec
	initCfg  core.NodeConfig
	opened   []string
	payload  string
	released core.Release

	// updater side
	located     string
	locateErr   error
	versions    map[string]string
	versionErr  map[string]error
	latestErr   error
	downloadErr error
	replaceErr  error
	restartErr  error
}

func (h *host) record(format string, args ...interface{}) {
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
}

func (h *host) called(prefix string) bool {
	for _, c := range h.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (h *host) UpdateSystem(ctx context.Context) error {
	h.record("update-system")
	return h.updateErr
}

func (h *host) EnsurePackages(ctx context.Context, packages []string) error {
	h.record("packages %s", strings.Join(packages, " "))
	return h.packagesErr
}

func (h *host) DetectPublicIP(ctx context.Context) (string, error) {
	h.record("detect-ip")
	return h.ip, h.detectErr
}

func (h *host) ConfigureFirewall(ctx context.Context, p []string) error {
	h.record("firewall %s", strings.Join(p, " "))
	h.opened = p
	return h.firewallErr
}

func (h *host) InstallationExists(cfg *core.NodeConfig) bool {
	h.record("exists")
	return h.exists
}

func (h *host) WriteDescription(cfg *core.NodeConfig, desc core.Description) (string, error) {
	h.record("description %s", cfg.NodeID)
	desc.Moniker = cfg.NodeID
	h.desc = desc
	h.descCfg = *cfg
	return cfg.DescriptionPath(), h.descErr
}

func (h *host) ReadMnemonic(cfg *core.NodeConfig) (string, error) {
	h.record("mnemonic %s", cfg.NodeID)
	h.mnemCfg = *cfg
	if h.mnemonic == "" {
		return "", core.ErrPreconditionUnmet
	}
	return h.mnemonic, nil
}

func (h *host) Install(ctx context.Context, spec core.ServiceSpec) error {
	h.record("service-install %s", spec.Name)
	h.unit = spec
	return nil
}

func (h *host) Restart(ctx context.Context, name string) error {
	h.record("restart %s", name)
	return h.restartErr
}

func (h *host) InvokingUser() (string, string, error) {
	if h.sudoUser != "" {
		return h.sudoUser, "/home/" + h.sudoUser, nil
	}
	return "operator", "/home/operator", nil
}

func (h *host) Latest(ctx context.Context, name string, exact bool) (core.Release, error) {
	h.record("latest %s %v", name, exact)
	if h.latestErr != nil {
		return core.Release{}, h.latestErr
	}
	h.released = core.Release{Tag: "nym-binaries-v2025.1", AssetName: name, DownloadURL: "https://example.invalid/" + name}
	return h.released, nil
}

func (h *host) Download(ctx context.Context, rel core.Release, dest string) error {
	h.record("download %s", dest)
	return h.downloadErr
}

func (h *host) Initialize(ctx context.Context, cfg *core.NodeConfig) error {
	h.record("init %s %s", cfg.NodeID, cfg.PublicIP)
	h.initCfg = *cfg
	return h.initErr
}

func (h *host) BondingInfo(ctx context.Context, cfg *core.NodeConfig) (core.BondingInfo, error) {
	h.record("bonding %s", cfg.NodeID)
	return h.bonding, nil
}

func (h *host) Sign(ctx context.Context, cfg *core.NodeConfig, payload string) (ports.SignResult, error) {
	h.record("sign %s", cfg.NodeID)
	h.payload = payload
	return h.sign, h.signErr
}

func (h *host) ReadVersion(ctx context.Context, binaryPath string) (string, error) {
	h.record("version %s", binaryPath)
	if err := h.versionErr[binaryPath]; err != nil {
		return "", err
	}
	v, ok := h.versions[binaryPath]
	if !ok {
		return "", core.ErrVersionNotFound
	}
	return v, nil
}

func (h *host) Locate() (string, error) {
	h.record("locate")
	return h.located, h.locateErr
}

// binaryStore splits the BinaryStore Install from the ServiceManager Install of host
type binaryStore struct{ h *host }

func (b binaryStore) Locate() (string, error) { return b.h.Locate() }

func (b binaryStore) Install(ctx context.Context, src, dest string) error {
	b.h.record("binary-install %s %s", src, dest)
	return nil
}

func (b binaryStore) Replace(ctx context.Context, candidate, live string) (string, error) {
	b.h.record("replace %s %s", candidate, live)
	if b.h.replaceErr != nil {
		return "", b.h.replaceErr
	}
	return live + ".backup", nil
}
