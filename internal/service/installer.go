package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

// State is a stop of the installation state machine
type State string

const (
	StateWelcome              State = "Welcome"
	StateSystemUpdate         State = "SystemUpdate"
	StateDependencyInstall    State = "DependencyInstall"
	StateExistingInstallCheck State = "ExistingInstallCheck"
	StateBinaryDownload       State = "BinaryDownload"
	StateModeSelection        State = "ModeSelection"
	StateFirewallConfig       State = "FirewallConfig"
	StateNodeInit             State = "NodeInit"
	StateDescriptionWrite     State = "DescriptionWrite"
	StateServiceInstall       State = "ServiceInstall"
	StateMnemonicDisplay      State = "MnemonicDisplay"
	StateWalletFunding        State = "WalletFunding"
	StateContractSigning      State = "ContractSigning"
	StateComplete             State = "Complete"
	StateAborted              State = "Aborted"
)

// Outcome tells the caller how a run ended when it did not fail
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	// OutcomeCancelled is a clean stop asked for by the operator, not a failure
	OutcomeCancelled
)

// InstallReport is what a run leaves behind
type InstallReport struct {
	Outcome Outcome
	Reached State // last state entered, StateAborted when the run stopped early
	Config  *core.NodeConfig
	Signed  bool
	// SignatureRaw is set when the sign output was shown as is because no signature was
	// recognised in it, the operator still has to copy the signature out by hand
	SignatureRaw bool
}

// InstallOptions are the knobs of one installation run
type InstallOptions struct {
	SkipSystemUpdate bool
	BinaryPath       string
	ServiceName      string
	AssetName        string
	DownloadDir      string
	Packages         []string
	Ports            []string
	WireGuardPorts   []string
}

// Installer walks one node through the installation from welcome screen to signed contract
type Installer struct {
	console  ports.Console
	packages ports.PackageManager
	network  ports.NetworkManager
	store    ports.HostStore
	services ports.ServiceManager
	binaries ports.BinaryStore
	releases ports.ReleaseIndex
	tool     ports.NodeTool
	funding  *FundingMonitor
	log      *logrus.Entry
	opts     InstallOptions
}

// InstallerDeps groups the collaborators of the installer
type InstallerDeps struct {
	Console  ports.Console
	Packages ports.PackageManager
	Network  ports.NetworkManager
	Store    ports.HostStore
	Services ports.ServiceManager
	Binaries ports.BinaryStore
	Releases ports.ReleaseIndex
	Tool     ports.NodeTool
	Funding  *FundingMonitor
}

func NewInstaller(deps InstallerDeps, opts InstallOptions, log *logrus.Entry) *Installer {
	return &Installer{
		console:  deps.Console,
		packages: deps.Packages,
		network:  deps.Network,
		store:    deps.Store,
		services: deps.Services,
		binaries: deps.Binaries,
		releases: deps.Releases,
		tool:     deps.Tool,
		funding:  deps.Funding,
		log:      log,
		opts:     opts,
	}
}

// run is the state carried from one step to the next, nothing else crosses step boundaries
type run struct {
	cfg          *core.NodeConfig
	signed       bool
	signatureRaw bool
}

type stage struct {
	state State
	step  core.InstallationStep
	fn    func(ctx context.Context, r *run) error
	// gates are the confirmation screens, they are not counted as installation steps
	gate bool
}

func (i *Installer) stages() []stage {
	return []stage{
		{state: StateWelcome, fn: i.welcome, gate: true},
		{state: StateSystemUpdate, step: core.InstallationStep{Name: "System update", Enabled: !i.opts.SkipSystemUpdate}, fn: i.systemUpdate},
		{state: StateDependencyInstall, step: core.InstallationStep{Name: "Dependencies", Enabled: true}, fn: i.dependencies},
		{state: StateExistingInstallCheck, fn: i.existingInstallCheck, gate: true},
		{state: StateBinaryDownload, step: core.InstallationStep{Name: "Binary download", Enabled: true}, fn: i.binaryDownload},
		{state: StateModeSelection, step: core.InstallationStep{Name: "Mode selection", Enabled: true}, fn: i.modeSelection},
		{state: StateFirewallConfig, step: core.InstallationStep{Name: "Firewall", Enabled: true}, fn: i.firewall},
		{state: StateNodeInit, step: core.InstallationStep{Name: "Node initialization", Enabled: true}, fn: i.nodeInit},
		{state: StateDescriptionWrite, step: core.InstallationStep{Name: "Node description", Enabled: true}, fn: i.description},
		{state: StateServiceInstall, step: core.InstallationStep{Name: "Service setup", Enabled: true}, fn: i.serviceInstall},
		{state: StateMnemonicDisplay, step: core.InstallationStep{Name: "Wallet mnemonic", Enabled: true}, fn: i.mnemonic},
		{state: StateWalletFunding, step: core.InstallationStep{Name: "Wallet funding", Enabled: true}, fn: i.walletFunding},
		{state: StateContractSigning, step: core.InstallationStep{Name: "Contract signing", Enabled: true}, fn: i.contractSigning},
		{state: StateComplete, fn: i.complete, gate: true},
	}
}

// Steps lists the installation steps in their fixed order
func (i *Installer) Steps() []core.InstallationStep {
	var steps []core.InstallationStep
	for _, s := range i.stages() {
		if !s.gate {
			steps = append(steps, s.step)
		}
	}
	return steps
}

// Run executes the installation. A cancelled run returns OutcomeCancelled and no error,
// any failing step stops the run and its error is returned. Earlier steps are not rolled back,
// rerunning the installer goes through the existing installation check instead
func (i *Installer) Run(ctx context.Context) (InstallReport, error) {
	name, home, err := i.services.InvokingUser()
	if err != nil {
		return InstallReport{Reached: StateAborted}, err
	}
	// the node binary, its files and the service all belong to the invoking user, never to root
	r := &run{
		cfg: &core.NodeConfig{BinaryPath: i.opts.BinaryPath, Mode: core.ModeMixnode, User: name, HomeDir: home},
	}
	report := InstallReport{Config: r.cfg}

	total := 0
	for _, s := range i.stages() {
		if !s.gate && s.step.Enabled {
			total++
		}
	}

	current := 0
	for _, s := range i.stages() {
		if !s.gate && !s.step.Enabled {
			continue
		}
		report.Reached = s.state
		if !s.gate {
			current++
			i.console.Step(current, total, s.step.Name)
		}
		i.log.WithField("state", s.state).Debug("entering")

		if err := s.fn(ctx, r); err != nil {
			report.Reached = StateAborted
			report.Signed = r.signed
			report.SignatureRaw = r.signatureRaw
			if errors.Is(err, core.ErrOperatorCancelled) {
				i.log.WithField("state", s.state).Info("installation cancelled by operator")
				report.Outcome = OutcomeCancelled
				return report, nil
			}
			i.log.WithField("state", s.state).WithError(err).Error("installation step failed")
			return report, fmt.Errorf("%s: %w", s.state, err)
		}
	}
	report.Outcome = OutcomeCompleted
	report.Signed = r.signed
	report.SignatureRaw = r.signatureRaw
	return report, nil
}

func (i *Installer) welcome(ctx context.Context, r *run) error {
	i.console.Section("Nym Node Installer")
	i.console.Info("This will:")
	if !i.opts.SkipSystemUpdate {
		i.console.Print("  • Update the system")
	}
	i.console.Print("  • Install dependencies")
	i.console.Print("  • Download and configure nym-node")
	i.console.Print("  • Set up the systemd service")
	i.console.Print("  • Guide you through funding and bonding")

	ok, err := i.console.Confirm("Continue? (y/N):")
	if err != nil {
		return err
	}
	if !ok {
		i.console.Info("Cancelled")
		return core.ErrOperatorCancelled
	}
	return nil
}

func (i *Installer) systemUpdate(ctx context.Context, r *run) error {
	if err := i.packages.UpdateSystem(ctx); err != nil {
		i.console.Error(err.Error())
		return err
	}
	i.console.Success("System updated")
	return nil
}

func (i *Installer) dependencies(ctx context.Context, r *run) error {
	if err := i.packages.EnsurePackages(ctx, i.opts.Packages); err != nil {
		i.console.Error(err.Error())
		return err
	}
	i.console.Success("Dependencies installed: " + strings.Join(i.opts.Packages, ", "))
	return nil
}

func (i *Installer) existingInstallCheck(ctx context.Context, r *run) error {
	if !i.store.InstallationExists(r.cfg) {
		return nil
	}
	i.console.Warn("Existing installation detected")
	ok, err := i.console.Confirm("Reinstall? (y/N):")
	if err != nil {
		return err
	}
	if !ok {
		i.console.Info("Keeping the existing installation")
		return core.ErrOperatorCancelled
	}
	return nil
}

func (i *Installer) binaryDownload(ctx context.Context, r *run) error {
	rel, err := i.releases.Latest(ctx, i.opts.AssetName, true)
	if err != nil {
		i.console.Error(err.Error())
		return err
	}
	i.console.Info(fmt.Sprintf("Latest release: %s", rel.Tag))

	if err := os.MkdirAll(i.opts.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("unable to create %s: %w", i.opts.DownloadDir, err)
	}
	tmp := filepath.Join(i.opts.DownloadDir, rel.AssetName)
	if err := i.releases.Download(ctx, rel, tmp); err != nil {
		i.console.Error(err.Error())
		return err
	}
	if err := i.binaries.Install(ctx, tmp, r.cfg.BinaryPath); err != nil {
		i.console.Error(err.Error())
		return err
	}
	i.console.Success("Binary installed: " + r.cfg.BinaryPath)
	return nil
}

func (i *Installer) modeSelection(ctx context.Context, r *run) error {
	i.console.Print("Available modes:")
	i.console.Print("  1. Mixnode - privacy mixnode")
	i.console.Print("  2. Exit Gateway - exit node")
	for {
		choice, err := i.console.Ask("Select mode (1 or 2):")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			r.cfg.Mode = core.ModeMixnode
			r.cfg.WireGuardEnabled = false
		case "2":
			r.cfg.Mode = core.ModeExitGateway
			wg, err := i.console.Confirm("Enable WireGuard? (y/N):")
			if err != nil {
				return err
			}
			r.cfg.WireGuardEnabled = wg
		default:
			i.console.Error("Invalid choice")
			continue
		}
		i.console.Success("Selected: " + r.cfg.ModeDescription())
		return nil
	}
}

// firewall is the one step whose failure does not stop the installation
func (i *Installer) firewall(ctx context.Context, r *run) error {
	open := append([]string{}, i.opts.Ports...)
	if r.cfg.WireGuard() {
		open = append(open, i.opts.WireGuardPorts...)
	}
	if err := i.network.ConfigureFirewall(ctx, open); err != nil {
		i.console.Warn("Firewall issues, continuing: " + err.Error())
		i.log.WithError(err).Warn("firewall configuration incomplete")
		return nil
	}
	i.console.Success(fmt.Sprintf("All %d ports configured", len(open)))
	return nil
}

func (i *Installer) nodeInit(ctx context.Context, r *run) error {
	for r.cfg.NodeID == "" {
		id, err := i.console.Ask("Enter node ID (moniker):")
		if err != nil {
			return err
		}
		if err := r.cfg.SetNodeID(id); err != nil {
			i.console.Error(fmt.Sprintf("Node ID must be at least %d characters", core.MinNodeIDLength))
		}
	}

	ip, err := i.network.DetectPublicIP(ctx)
	if err != nil {
		i.console.Warn("Failed to detect public IP")
		ip, err = i.console.Ask("Enter public IP manually:")
		if err != nil {
			return err
		}
		if ip == "" {
			return fmt.Errorf("public ip required: %w", core.ErrPreconditionUnmet)
		}
	}
	r.cfg.PublicIP = ip
	i.console.Success("Public IP: " + ip)

	if err := i.tool.Initialize(ctx, r.cfg); err != nil {
		var toolErr *core.ToolError
		if errors.As(err, &toolErr) && toolErr.Output != "" {
			i.console.Print(toolErr.Output)
		}
		i.console.Error("Initialization failed")
		return err
	}
	i.console.Success("Node initialized")
	return nil
}

func (i *Installer) description(ctx context.Context, r *run) error {
	i.console.Info("Node description (optional, leave blank to skip):")
	var desc core.Description
	for _, field := range []struct {
		prompt string
		dst    *string
	}{
		{"Website:", &desc.Website},
		{"Security contact:", &desc.SecurityContact},
		{"Details:", &desc.Details},
	} {
		v, err := i.console.Ask(field.prompt)
		if err != nil {
			return err
		}
		*field.dst = v
	}
	path, err := i.store.WriteDescription(r.cfg, desc)
	if err != nil {
		i.console.Error(err.Error())
		return err
	}
	i.console.Success("Description written: " + path)
	return nil
}

func (i *Installer) serviceInstall(ctx context.Context, r *run) error {
	spec := core.ServiceSpec{
		Name:       i.opts.ServiceName,
		NodeID:     r.cfg.NodeID,
		BinaryPath: r.cfg.BinaryPath,
		Mode:       r.cfg.Mode,
		WireGuard:  r.cfg.WireGuard(),
		User:       r.cfg.User,
		HomeDir:    r.cfg.HomeDir,
	}
	if err := i.services.Install(ctx, spec); err != nil {
		i.console.Error(err.Error())
		return err
	}
	i.console.Success("Service created and started")
	return nil
}

func (i *Installer) mnemonic(ctx context.Context, r *run) error {
	m, err := i.store.ReadMnemonic(r.cfg)
	if err != nil {
		i.console.Warn("Mnemonic not available: " + err.Error())
		return nil
	}
	r.cfg.SetMnemonic(m)

	i.console.Highlight("CRITICAL SECURITY", "")
	i.console.Print("This is the ONLY way to recover your wallet. Store it securely, never share it.")
	i.console.Highlight("MNEMONIC PHRASE", r.cfg.Mnemonic)
	for {
		ok, err := i.console.Confirm("Safely stored? (yes/no):")
		if err != nil {
			return err
		}
		if ok {
			i.console.Success("Confirmed")
			return nil
		}
	}
}

func (i *Installer) walletFunding(ctx context.Context, r *run) error {
	i.console.Info("Steps:")
	i.console.Print("  1. Download the Nym wallet: https://nym.com/wallet")
	i.console.Print("  2. Restore it from the mnemonic above")
	i.console.Print(fmt.Sprintf("  3. Fund it with %g+ NYM", i.funding.Threshold()))

	var address string
	for {
		a, err := i.console.Ask("Enter wallet address (starts with 'n'):")
		if err != nil {
			return err
		}
		if strings.HasPrefix(a, "n") && len(a) > 10 {
			address = a
			break
		}
		i.console.Error("Invalid address format")
	}

	funded, err := i.funding.WaitForFunding(ctx, address)
	if err != nil {
		i.console.Error("Cannot proceed without funds")
		return err
	}
	if !funded {
		return core.ErrInsufficientFunds
	}
	if _, err := i.console.Ask("Press Enter to continue..."); err != nil {
		return err
	}
	return nil
}

func (i *Installer) contractSigning(ctx context.Context, r *run) error {
	bonding, err := i.tool.BondingInfo(ctx, r.cfg)
	if err != nil {
		i.console.Error(err.Error())
		return err
	}
	if bonding.IdentityKey == "" {
		i.console.Error("Identity key not found in the bonding information")
		i.console.Info(fmt.Sprintf("Run 'nymctl node bonding --id %s' once the node is up and sign manually", r.cfg.NodeID))
		i.log.WithError(core.ErrToolOutputUnparseable).Warn("contract signing skipped")
		return nil
	}

	i.console.Highlight("BONDING INFORMATION", "")
	i.console.Print("Identity Key: " + bonding.IdentityKey)
	i.console.Print("Host:         " + bonding.Host)
	i.console.Print("Mode:         " + string(r.cfg.Mode))
	i.console.Info("Open the Nym wallet, go to the bonding section, generate the payload with the data above and paste it below")

	var payload string
	for {
		p, err := i.console.Ask("Paste wallet payload:")
		if err != nil {
			return err
		}
		if len(p) >= core.MinPayloadLength {
			payload = p
			break
		}
		i.console.Error("Invalid payload")
	}

	res, err := i.tool.Sign(ctx, r.cfg, payload)
	if err != nil {
		i.console.Error("Signing failed")
		if res.Raw != "" {
			i.console.Print(res.Raw)
		}
		return err
	}
	if !res.Found {
		i.console.Warn("Could not find the signature, copy it from the output below")
		i.console.Highlight("SIGNATURE OUTPUT", "")
		i.console.Print(res.Raw)
		r.signatureRaw = true
		return nil
	}

	i.console.Success("Contract signed!")
	i.console.Highlight("ENTER THIS IN WALLET", res.Signature)
	for {
		ok, err := i.console.Confirm("Copied signature? (yes/no):")
		if err != nil {
			return err
		}
		if ok {
			break
		}
	}
	r.signed = true
	return nil
}

func (i *Installer) complete(ctx context.Context, r *run) error {
	i.console.Section("Installation Complete!")
	i.console.Print("  ✓ Binary:    " + r.cfg.BinaryPath)
	i.console.Print("  ✓ Node ID:   " + r.cfg.NodeID)
	i.console.Print("  ✓ Mode:      " + r.cfg.ModeDescription())
	i.console.Print("  ✓ Public IP: " + r.cfg.PublicIP)
	switch {
	case r.signed:
		i.console.Print("  ✓ Contract signed")
	case r.signatureRaw:
		i.console.Print("  ! Contract signature not recognised, copy it from the sign output above")
	default:
		i.console.Print("  ! Contract not signed")
	}
	i.console.Print("")
	i.console.Print("Status: sudo systemctl status " + i.opts.ServiceName)
	i.console.Print("Logs:   sudo journalctl -u " + strings.TrimSuffix(i.opts.ServiceName, ".service") + " -f")
	i.console.Info("Complete bonding in the Nym wallet and wait for the next epoch")
	i.log.WithFields(logrus.Fields{"id": r.cfg.NodeID, "mode": r.cfg.Mode}).Info("installation complete")
	return nil
}

// DefaultDownloadDir is the scratch directory for downloaded binaries
func DefaultDownloadDir() string {
	return filepath.Join(os.TempDir(), "nymctl")
}
