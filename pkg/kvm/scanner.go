package kvm

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ScanPorts is a line scanner for compose files the YAML decoder rejects
// (tabs, duplicate keys, unbalanced quotes elsewhere in the file). It
// tracks indentation to find services -> <service> -> ports and returns
// the port specs found there. Long-syntax items are folded into
// "[host_ip:]published:target/protocol" specs. An empty service means the
// first service.
func ScanPorts(data []byte, service string) ([]string, error) {
	const none = -1
	var (
		servicesIndent = none
		childIndent    = none
		serviceIndent  = none
		portsIndent    = none
		found          bool
		specs          []string
		item           map[string]string
		itemIndent     = none
	)

	flush := func() {
		if item != nil {
			specs = append(specs, foldLongPort(item))
			item = nil
			itemIndent = none
		}
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		raw := strings.ReplaceAll(sc.Text(), "\t", "  ")
		trimmed := strings.TrimSpace(stripComment(raw))
		if trimmed == "" {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " "))

		if portsIndent != none {
			isItem := strings.HasPrefix(trimmed, "- ") || trimmed == "-"
			switch {
			case isItem && indent >= portsIndent && (indent > portsIndent || itemIndent == none || indent == itemIndent):
				flush()
				rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
				if k, v, ok := splitKey(rest); ok {
					item = map[string]string{k: v}
					itemIndent = indent
				} else {
					specs = append(specs, unquote(rest))
				}
				continue
			case item != nil && indent > itemIndent:
				if k, v, ok := splitKey(trimmed); ok {
					item[k] = v
				}
				continue
			default:
				flush()
				portsIndent = none
			}
		}

		if serviceIndent != none {
			if indent <= serviceIndent {
				break
			}
			if k, v, ok := splitKey(trimmed); ok && k == "ports" {
				if strings.HasPrefix(v, "[") {
					specs = append(specs, flowList(v)...)
				} else {
					portsIndent = indent
				}
			}
			continue
		}

		if servicesIndent != none {
			if indent <= servicesIndent {
				servicesIndent = none
				continue
			}
			if childIndent == none {
				childIndent = indent
			}
			if indent != childIndent {
				continue
			}
			k, _, ok := splitKey(trimmed)
			if ok && (service == "" || k == service) {
				found = true
				serviceIndent = indent
			}
			continue
		}

		if indent == 0 && trimmed == "services:" {
			servicesIndent = 0
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !found {
		if service == "" {
			return nil, ErrNoService
		}
		return nil, fmt.Errorf("%w: %q", ErrNoService, service)
	}
	if len(specs) == 0 {
		return nil, ErrNoPorts
	}
	return specs, nil
}

// splitKey splits "key: value" and "key:"; values are unquoted.
func splitKey(s string) (key, value string, ok bool) {
	k, v, found := strings.Cut(s, ":")
	if !found || k == "" || strings.ContainsAny(k, `"' `) {
		return "", "", false
	}
	// "2222:22" is a port spec, not a key.
	if v != "" && !strings.HasPrefix(v, " ") {
		return "", "", false
	}
	return k, unquote(strings.TrimSpace(v)), true
}

func stripComment(line string) string {
	inSingle, inDouble := false, false
	for i, r := range line {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble && (i == 0 || line[i-1] == ' ') {
				return line[:i]
			}
		}
	}
	return line
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func flowList(v string) []string {
	v = strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := unquote(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func foldLongPort(item map[string]string) string {
	spec := item["target"]
	if p := item["published"]; p != "" {
		spec = p + ":" + spec
		if ip := item["host_ip"]; ip != "" {
			if strings.Contains(ip, ":") {
				ip = "[" + ip + "]"
			}
			spec = ip + ":" + spec
		}
	}
	if proto := item["protocol"]; proto != "" {
		spec += "/" + proto
	}
	return spec
}
