package kvm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ParsePortSpec parses the compose short port syntax:
//
//	"22"  "2222:22"  "127.0.0.1:2222:22"  "[::1]:2222:22"
//	"2222:22/tcp"  "5900-5901:5900-5901"  "127.0.0.1::22"
//
// ${VAR:-default} references are expanded from the environment.
func ParsePortSpec(s string) ([]PortMapping, error) {
	spec := strings.Trim(strings.TrimSpace(interpolate(s)), `"'`)
	if spec == "" {
		return nil, fmt.Errorf("empty port spec")
	}

	proto := "tcp"
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		proto = strings.ToLower(spec[i+1:])
		spec = spec[:i]
	}

	var ip string
	if strings.HasPrefix(spec, "[") {
		end := strings.Index(spec, "]")
		if end < 0 {
			return nil, fmt.Errorf("invalid port spec %q: unterminated IPv6 address", s)
		}
		ip = spec[1:end]
		spec = strings.TrimPrefix(spec[end+1:], ":")
	}

	var hostPart, containerPart string
	parts := strings.Split(spec, ":")
	switch {
	case len(parts) == 1:
		containerPart = parts[0]
	case len(parts) == 2:
		hostPart, containerPart = parts[0], parts[1]
	case len(parts) == 3 && ip == "":
		ip, hostPart, containerPart = parts[0], parts[1], parts[2]
	default:
		return nil, fmt.Errorf("invalid port spec %q", s)
	}

	cFrom, cTo, err := parseRange(containerPart)
	if err != nil {
		return nil, fmt.Errorf("invalid port spec %q: %w", s, err)
	}

	var out []PortMapping
	if hostPart == "" {
		for p := cFrom; p <= cTo; p++ {
			out = append(out, PortMapping{HostIP: ip, ContainerPort: p, Protocol: proto})
		}
		return out, nil
	}

	hFrom, hTo, err := parseRange(hostPart)
	if err != nil {
		return nil, fmt.Errorf("invalid port spec %q: %w", s, err)
	}
	switch {
	case hTo-hFrom == cTo-cFrom:
		for i := 0; i <= cTo-cFrom; i++ {
			out = append(out, PortMapping{HostIP: ip, HostPort: hFrom + i, ContainerPort: cFrom + i, Protocol: proto})
		}
	case cFrom == cTo:
		out = append(out, PortMapping{HostIP: ip, HostPort: hFrom, ContainerPort: cFrom, Protocol: proto})
	default:
		return nil, fmt.Errorf("invalid port spec %q: host and container ranges differ in size", s)
	}
	return out, nil
}

// parseRange parses "8080" or "5900-5905".
func parseRange(s string) (from, to int, err error) {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(s), "-")
	if from, err = parsePort(lo); err != nil {
		return 0, 0, err
	}
	if !isRange {
		return from, from, nil
	}
	if to, err = parsePort(hi); err != nil {
		return 0, 0, err
	}
	if to < from {
		return 0, 0, fmt.Errorf("range %q is reversed", s)
	}
	return from, to, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}

// interpolate expands $VAR and ${VAR:-default} the way compose does for
// the common cases. Text it cannot expand is returned unchanged.
func interpolate(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	word, err := syntax.NewParser().Document(strings.NewReader(s))
	if err != nil {
		return s
	}
	out, err := expand.Document(&expand.Config{Env: expand.ListEnviron(os.Environ()...)}, word)
	if err != nil {
		return s
	}
	return out
}
