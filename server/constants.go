package server

import "github.com/nedpals/davi-sector-agent/buildinfo"

// mDNS service discovery constants
var (
	MDNSServiceType = "_nfc-sector._tcp"
	MDNSServiceName = buildinfo.DisplayName
	MDNSDomain      = "local."
)

// HTTP routes
const (
	RouteHealth  = "/api/v1/health"
	RouteSectors = "/api/v1/sectors"
	RouteWS      = "/ws"
)

// Report sources
const (
	SourceHTTP      = "http-api"
	SourceWebSocket = "websocket"
	SourceReader    = "reader"
)

// maxRequestBody caps POST bodies; a 4K dump is well under 16KB.
const maxRequestBody = 1 << 20

// CORS configuration
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, POST, OPTIONS"
	CORSAllowHeaders = "Content-Type, Authorization"
)
