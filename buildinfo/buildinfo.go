// Package buildinfo holds the agent's name and version. Version, Commit and
// BuildTime are stamped by release builds:
//
//	go build -ldflags "\
//	  -X github.com/nedpals/davi-sector-agent/buildinfo.Version=1.2.0 \
//	  -X github.com/nedpals/davi-sector-agent/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/nedpals/davi-sector-agent/buildinfo.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Name is the binary name. It also names the config directory.
	Name = "davi-sector-agent"

	// DisplayName is shown on the CA bootstrap page and in mDNS.
	DisplayName = "Davi Sector Agent"

	Description = "MIFARE sector decoder with HTTP and WebSocket reporting"

	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// ProtocolVersion is the version of the sector report wire format. Clients
// discover it through the mDNS TXT record.
const ProtocolVersion = "1.0"

// FullVersion returns Version, followed by the short commit when known,
// e.g. "1.2.0 (abc1234)".
func FullVersion() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

// BuildInfo renders the output of the version command.
func BuildInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Name, FullVersion())
	fmt.Fprintf(&b, "  %s\n", Description)
	fmt.Fprintf(&b, "  Protocol: %s\n", ProtocolVersion)
	fmt.Fprintf(&b, "  Go: %s\n", runtime.Version())
	fmt.Fprintf(&b, "  OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		fmt.Fprintf(&b, "\n  Built: %s", BuildTime)
	}
	return b.String()
}
