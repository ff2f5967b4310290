package nymnode

import (
	"strings"

	"nymctl/internal/core"
)

// The node binary prints free text. Nothing here is a schema, every parser returns
// whether it found something so the caller can fall back to showing the raw output.

const (
	identityKeyLabel  = "Identity Key:"
	hostLabel         = "Host:"
	buildVersionLabel = "Build Version:"
	signatureMarker   = "is:"

	// a bare last line longer than this is taken to be the signature itself
	minBareSignatureLength = 40
)

// ParseBondingInfo picks the labelled fields out of bonding-information output.
// Labels may come in any order, unknown lines are ignored and a missing label leaves its field empty
func ParseBondingInfo(output string) (core.BondingInfo, bool) {
	var info core.BondingInfo
	found := false
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, identityKeyLabel):
			info.IdentityKey = valueAfter(line, identityKeyLabel)
			found = true
		case strings.Contains(line, hostLabel):
			info.Host = valueAfter(line, hostLabel)
			found = true
		}
	}
	return info, found
}

func valueAfter(line, label string) string {
	_, after, _ := strings.Cut(line, label)
	return strings.TrimSpace(after)
}

// ExtractSignature finds the signature in the output of the sign subcommand.
// Tried in order: the text after a line ending in "is:", a long last line,
// the suffix of the first line containing "is:".
func ExtractSignature(output string) (string, bool) {
	if idx := strings.LastIndex(output, signatureMarker+"\n"); idx >= 0 {
		if sig := strings.TrimSpace(output[idx+len(signatureMarker)+1:]); sig != "" {
			return sig, true
		}
	}

	if last := lastNonEmptyLine(output); len(last) > minBareSignatureLength {
		return last, true
	}

	for _, line := range strings.Split(output, "\n") {
		if _, after, ok := strings.Cut(line, signatureMarker); ok {
			if sig := strings.TrimSpace(after); sig != "" {
				return sig, true
			}
		}
	}
	return "", false
}

func lastNonEmptyLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// ParseBuildVersion returns the value of the "Build Version:" line of --version output
func ParseBuildVersion(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, buildVersionLabel) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, buildVersionLabel))
		if len(fields) == 0 {
			return "", false
		}
		return fields[len(fields)-1], true
	}
	return "", false
}
