package server

import (
	"fmt"
	"log"

	"github.com/grandcat/zeroconf"

	"github.com/nedpals/davi-sector-agent/buildinfo"
)

// mdnsService advertises the agent so phones on the LAN can find it.
type mdnsService struct {
	server *zeroconf.Server
	port   int
}

// mdnsTXTRecords describes the endpoints a discovering client can use.
func mdnsTXTRecords(secure bool) []string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return []string{
		"version=" + buildinfo.ProtocolVersion,
		"protocol=websocket",
		"path=" + RouteWS,
		"api=" + RouteSectors,
		"scheme=" + scheme,
	}
}

// startMDNS registers the agent as an mDNS service for auto-discovery
func startMDNS(port int, secure bool) (*mdnsService, error) {
	server, err := zeroconf.Register(MDNSServiceName, MDNSServiceType, MDNSDomain, port, mdnsTXTRecords(secure), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	log.Printf("mDNS service registered: %s on port %d", MDNSServiceName, port)
	return &mdnsService{server: server, port: port}, nil
}

// Shutdown withdraws the advertisement.
func (m *mdnsService) Shutdown() {
	if m == nil || m.server == nil {
		return
	}
	m.server.Shutdown()
	m.server = nil
	log.Printf("mDNS service stopped")
}
