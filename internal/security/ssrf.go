// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package security holds request-hardening checks applied before any
// user-supplied URL reaches the outbound substrate.
package security

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrPrivateAddress is returned for any URL that resolves to an
// internal, private, or otherwise non-public address. The message is
// part of the API contract.
var ErrPrivateAddress = errors.New("URLs pointing to internal/private IP addresses are not allowed")

// ErrUnsupportedScheme is returned for non-http(s) URLs.
var ErrUnsupportedScheme = errors.New("only http and https URLs are allowed")

// blockedPrefixes catches private hosts written as dotted strings even
// when they are not parseable IPs (e.g. "10.0.0.5.nip.example").
var blockedPrefixes = []string{
	"10.",
	"192.168.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"169.254.",
	"0.",
	"127.",
}

var localhostNames = map[string]bool{
	"localhost":             true,
	"localhost.localdomain": true,
	"ip6-localhost":         true,
	"ip6-loopback":          true,
}

// lookupHost is swapped in tests.
var lookupHost = net.LookupHost

// ValidateOutboundURL rejects URLs that could reach internal services:
// non-http(s) schemes, localhost names, literal private/loopback/
// link-local/reserved/multicast IPs, private dotted prefixes, and
// hostnames whose DNS resolution lands on any such address.
func ValidateOutboundURL(rawurl string) error {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return ErrPrivateAddress
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsupportedScheme
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ErrPrivateAddress
	}

	if localhostNames[host] || strings.HasSuffix(host, ".localhost") {
		return ErrPrivateAddress
	}

	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(host, prefix) {
			return ErrPrivateAddress
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return ErrPrivateAddress
		}
		return nil
	}

	// Hostname: resolve and vet every address. A host that cannot be
	// resolved is rejected rather than fetched blind.
	addrs, err := lookupHost(host)
	if err != nil || len(addrs) == 0 {
		return ErrPrivateAddress
	}
	for _, addr := range addrs {
		ip := net.ParseIP(addr)
		if ip == nil || isBlockedIP(ip) {
			return ErrPrivateAddress
		}
	}
	return nil
}

// isBlockedIP reports whether ip falls in any non-public range.
func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		isReserved(ip)
}

// isReserved covers ranges the stdlib predicates miss: 100.64/10
// (carrier NAT), 192.0.0/24, 192.0.2/24, 198.18/15, 198.51.100/24,
// 203.0.113/24, 240/4, and the IPv6 unique-local block.
func isReserved(ip net.IP) bool {
	for _, cidr := range reservedNets {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

var reservedNets = mustParseCIDRs(
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
