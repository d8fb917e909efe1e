// Package tls issues a locally trusted certificate so phones on the LAN can
// post sector dumps over HTTPS and WSS.
package tls

import (
	"net"
	"slices"
)

// LANAddresses returns the IPv4 addresses of every interface that is up,
// excluding loopback.
func LANAddresses() ([]string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		ips = appendIPv4(ips, addrs)
	}
	return ips, nil
}

func appendIPv4(ips []string, addrs []net.Addr) []string {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.To4() == nil || ip.IsLoopback() {
			continue
		}
		if s := ip.String(); !slices.Contains(ips, s) {
			ips = append(ips, s)
		}
	}
	return ips
}

// CertificateHosts returns localhost plus the LAN addresses. On error the
// loopback names are still returned.
func CertificateHosts() ([]string, error) {
	hosts := []string{"localhost", "127.0.0.1"}

	lanIPs, err := LANAddresses()
	if err != nil {
		return hosts, err
	}
	return append(hosts, lanIPs...), nil
}
