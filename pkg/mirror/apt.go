// Package mirror points package managers at mirror servers: APT sources,
// pip, npm, the Go module proxy, rustup/crates.io and Docker registries.
package mirror

import (
	"net/url"
	"path/filepath"
	"strings"
)

// BackupSuffix is appended to system files before their first rewrite.
const BackupSuffix = ".devbox.bak"

// markerPrefix starts the comment line recording the mirror a sources file
// was last pointed at.
const markerPrefix = "# devbox mirror: "

// archives are the upstream archive path segments a mirror can serve.
var archives = []string{"ubuntu-ports", "ubuntu", "debian-security", "debian"}

// isUpstreamHost reports whether host is an official Ubuntu or Debian
// archive host.
func isUpstreamHost(host string) bool {
	host = strings.ToLower(host)
	switch host {
	case "archive.ubuntu.com", "security.ubuntu.com", "ports.ubuntu.com",
		"deb.debian.org", "security.debian.org", "ftp.debian.org", "httpredir.debian.org":
		return true
	}
	// Country mirrors: cn.archive.ubuntu.com, ftp.de.debian.org
	if strings.HasSuffix(host, ".archive.ubuntu.com") || strings.HasSuffix(host, ".ports.ubuntu.com") {
		return true
	}
	if strings.HasPrefix(host, "ftp.") && strings.HasSuffix(host, ".debian.org") {
		return true
	}
	return false
}

// mirrorRoot strips a trailing archive segment from the configured mirror,
// so "https://m.example.com/ubuntu" becomes "https://m.example.com".
func mirrorRoot(base string) string {
	base = strings.TrimRight(base, "/")
	for _, a := range archives {
		if strings.HasSuffix(base, "/"+a) {
			return strings.TrimSuffix(base, "/"+a)
		}
	}
	return base
}

// RewriteURI maps an upstream archive URI onto the mirror. ok is false when
// uri is not an upstream archive.
func RewriteURI(uri, mirrorBase string) (string, bool) {
	return rewriteURI(uri, mirrorBase, "")
}

// rewriteURI also accepts URIs under the previous mirror's root.
func rewriteURI(uri, mirrorBase, previous string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri, false
	}

	path := strings.TrimPrefix(u.Path, "/")
	if !isUpstreamHost(u.Hostname()) {
		root := mirrorRoot(previous)
		rel, ok := strings.CutPrefix(uri, root+"/")
		if previous == "" || !ok {
			return uri, false
		}
		path = rel
	}
	archive, rest, _ := strings.Cut(path, "/")
	known := false
	for _, a := range archives {
		if archive == a {
			known = true
			break
		}
	}
	if !known {
		return uri, false
	}

	out := mirrorRoot(mirrorBase) + "/" + archive
	if rest != "" || strings.HasSuffix(u.Path, "/") {
		out += "/" + rest
	}
	return out, out != uri
}

// RewriteSources rewrites upstream archive URIs in an APT sources file.
// It understands one-line "deb"/"deb-src" entries and deb822 "URIs:"
// fields. Comments and third-party repositories are left alone.
func RewriteSources(content, mirrorBase string) (string, bool) {
	return RewriteSourcesFrom(content, mirrorBase, "")
}

// RewriteSourcesFrom is RewriteSources for a file already pointed at the
// previous mirror: URIs under it are moved to mirrorBase as well.
func RewriteSourcesFrom(content, mirrorBase, previous string) (string, bool) {
	if mirrorBase == "" {
		return content, false
	}

	lines := strings.SplitAfter(content, "\n")
	changed := false

	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		eol := line[len(body):]
		trimmed := strings.TrimSpace(body)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		var (
			rewritten string
			ok        bool
		)
		switch {
		case strings.HasPrefix(trimmed, "deb ") || strings.HasPrefix(trimmed, "deb-src "):
			rewritten, ok = rewriteOneLine(body, mirrorBase, previous)
		case strings.HasPrefix(strings.ToLower(trimmed), "uris:"):
			rewritten, ok = rewriteURIsField(body, mirrorBase, previous)
		}

		if ok {
			lines[i] = rewritten + eol
			changed = true
		}
	}

	return strings.Join(lines, ""), changed
}

// rewriteOneLine handles "deb [opts] URI suite components".
func rewriteOneLine(line, mirrorBase, previous string) (string, bool) {
	fields := strings.Fields(line)
	idx := 1
	// Options may contain spaces: [arch=amd64 signed-by=/usr/share/keyrings/x.gpg]
	if idx < len(fields) && strings.HasPrefix(fields[idx], "[") {
		for idx < len(fields) && !strings.HasSuffix(fields[idx], "]") {
			idx++
		}
		idx++
	}
	if idx >= len(fields) {
		return line, false
	}

	uri := fields[idx]
	newURI, ok := rewriteURI(uri, mirrorBase, previous)
	if !ok {
		return line, false
	}
	return strings.Replace(line, uri, newURI, 1), true
}

// rewriteURIsField handles a deb822 "URIs: a b" field.
func rewriteURIsField(line, mirrorBase, previous string) (string, bool) {
	colon := strings.Index(line, ":")
	prefix, value := line[:colon+1], line[colon+1:]

	uris := strings.Fields(value)
	changed := false
	for i, uri := range uris {
		if newURI, ok := rewriteURI(uri, mirrorBase, previous); ok {
			uris[i] = newURI
			changed = true
		}
	}
	if !changed {
		return line, false
	}
	return prefix + " " + strings.Join(uris, " "), true
}

// AppliedMirror returns the mirror recorded in content by an earlier
// apply, or "" when there is none.
func AppliedMirror(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), markerPrefix); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// MarkMirror records mirrorBase in content, replacing an existing marker
// or prepending a new one.
func MarkMirror(content, mirrorBase string) string {
	marker := markerPrefix + mirrorBase + "\n"
	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), markerPrefix) {
			lines[i] = marker
			return strings.Join(lines, "")
		}
	}
	return marker + content
}

// APTSourceFiles returns the candidate APT source files under root.
func APTSourceFiles(root string) []string {
	return []string{
		filepath.Join(root, "etc", "apt", "sources.list"),
		filepath.Join(root, "etc", "apt", "sources.list.d", "ubuntu.sources"),
		filepath.Join(root, "etc", "apt", "sources.list.d", "debian.sources"),
	}
}
