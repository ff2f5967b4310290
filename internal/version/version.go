package version

// Build holds the build identifier, injected via -ldflags "-X nymctl/internal/version.Build=...". Default "dev".
var Build = "dev"
