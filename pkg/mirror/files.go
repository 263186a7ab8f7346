package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
)

// CargoSourceName is the [source.<name>] table devbox owns in cargo config.
const CargoSourceName = "devbox-mirror"

// SetPipIndex sets [global] index-url and trusted-host in a pip.conf.
// Other sections and keys are preserved.
func SetPipIndex(content, index string) (string, error) {
	u, err := url.Parse(index)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid pip index %q", index)
	}

	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, []byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse pip.conf: %w", err)
	}

	global := f.Section("global")
	global.Key("index-url").SetValue(index)
	if u.Scheme == "http" {
		global.Key("trusted-host").SetValue(u.Hostname())
	} else {
		global.DeleteKey("trusted-host")
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render pip.conf: %w", err)
	}
	return buf.String(), nil
}

// User config files are written as plain key=value, without the padding
// ini.v1 adds to align keys.
func init() {
	ini.PrettyFormat = false
}

// SetNpmRegistry sets registry= in an .npmrc, preserving scoped registries
// and auth tokens.
func SetNpmRegistry(content, registry string) (string, error) {
	opts := ini.LoadOptions{
		IgnoreInlineComment:      true,
		KeyValueDelimiters:       "=",
		KeyValueDelimiterOnWrite: "=",
	}
	f, err := ini.LoadSources(opts, []byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse .npmrc: %w", err)
	}

	f.Section(ini.DefaultSection).Key("registry").SetValue(registry)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render .npmrc: %w", err)
	}
	return buf.String(), nil
}

// GoProxyValue returns the GOPROXY value for a configured proxy.
func GoProxyValue(proxy string) string {
	if proxy == "direct" || proxy == "off" || strings.Contains(proxy, ",") || strings.Contains(proxy, "|") {
		return proxy
	}
	return strings.TrimRight(proxy, "/") + ",direct"
}

// CargoRegistry normalizes a crates index URL to cargo's sparse form.
func CargoRegistry(mirror string) string {
	if strings.HasPrefix(mirror, "sparse+") || strings.HasPrefix(mirror, "git+") {
		return mirror
	}
	if !strings.HasSuffix(mirror, "/") {
		mirror += "/"
	}
	return "sparse+" + mirror
}

// CargoConfig merges the crates.io source replacement into an existing
// ~/.cargo/config.toml document.
func CargoConfig(existing []byte, mirror string) ([]byte, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := toml.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse cargo config: %w", err)
		}
	}

	source, _ := doc["source"].(map[string]any)
	if source == nil {
		source = map[string]any{}
	}

	cratesIO, _ := source["crates-io"].(map[string]any)
	if cratesIO == nil {
		cratesIO = map[string]any{}
	}
	cratesIO["replace-with"] = CargoSourceName
	source["crates-io"] = cratesIO
	source[CargoSourceName] = map[string]any{"registry": CargoRegistry(mirror)}
	doc["source"] = source

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render cargo config: %w", err)
	}
	return out, nil
}

// RustupEnv returns the environment rustup reads for mirrored downloads.
func RustupEnv(distServer, updateRoot string) map[string]string {
	env := map[string]string{}
	if distServer != "" {
		env["RUSTUP_DIST_SERVER"] = strings.TrimRight(distServer, "/")
		if updateRoot == "" {
			updateRoot = strings.TrimRight(distServer, "/") + "/rustup"
		}
	}
	if updateRoot != "" {
		env["RUSTUP_UPDATE_ROOT"] = strings.TrimRight(updateRoot, "/")
	}
	return env
}

// MergeDaemonJSON sets registry-mirrors in a Docker daemon.json, keeping
// every other key. changed is false when the mirrors already match.
func MergeDaemonJSON(existing []byte, mirrors []string) ([]byte, bool, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, false, fmt.Errorf("failed to parse daemon.json: %w", err)
		}
	}

	if current, ok := doc["registry-mirrors"].([]any); ok && sameStrings(current, mirrors) {
		return existing, false, nil
	}

	list := make([]any, len(mirrors))
	for i, m := range mirrors {
		list[i] = m
	}
	doc["registry-mirrors"] = list

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("failed to render daemon.json: %w", err)
	}
	return append(out, '\n'), true, nil
}

func sameStrings(current []any, want []string) bool {
	if len(current) != len(want) {
		return false
	}
	for i, v := range current {
		s, ok := v.(string)
		if !ok || s != want[i] {
			return false
		}
	}
	return true
}
