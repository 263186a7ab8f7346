package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Severity represents the severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue represents a validation issue found in the config.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult holds all validation results.
type ValidationResult struct {
	Issues []Issue `json:"issues"`
}

// HasErrors returns true if there are any error-level issues.
func (r *ValidationResult) HasErrors() bool {
	return r.ErrorCount() > 0
}

// ErrorCount returns the number of error-level issues.
func (r *ValidationResult) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level issues.
func (r *ValidationResult) WarningCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

func (r *ValidationResult) add(field string, sev Severity, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	})
}

var (
	aliasPattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
)

// KnownAITools lists AI assistant component IDs accepted in ai.tools.
var KnownAITools = []string{"claude-code", "codex", "gemini-cli"}

// Validate checks the config for errors and suspicious values.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Issues: []Issue{}}

	mirrors := map[string]string{
		"mirrors.apt":                c.Mirrors.APT,
		"mirrors.pip_index":          c.Mirrors.PipIndex,
		"mirrors.npm_registry":       c.Mirrors.NpmRegistry,
		"mirrors.rustup_dist_server": c.Mirrors.RustupDist,
		"mirrors.rustup_update_root": c.Mirrors.RustupUpdate,
		"mirrors.crates_mirror":      c.Mirrors.CratesMirror,
	}
	for field, value := range mirrors {
		if value == "" {
			continue
		}
		if err := checkURL(value); err != nil {
			result.add(field, SeverityError, "%v", err)
		}
	}
	for i, m := range c.Mirrors.DockerMirrors {
		if err := checkURL(m); err != nil {
			result.add(fmt.Sprintf("mirrors.docker_mirrors[%d]", i), SeverityError, "%v", err)
		}
	}
	if c.Mirrors.GoProxy != "" {
		if err := checkGoProxy(c.Mirrors.GoProxy); err != nil {
			result.add("mirrors.go_proxy", SeverityError, "%v", err)
		}
	}

	if _, err := strconv.Atoi(c.Toolchains.NodeMajor); err != nil {
		result.add("toolchains.node_major", SeverityError, "must be a major version number, got %q", c.Toolchains.NodeMajor)
	}
	if _, err := strconv.Atoi(c.Toolchains.JavaVersion); err != nil {
		result.add("toolchains.java_version", SeverityError, "must be a number, got %q", c.Toolchains.JavaVersion)
	}
	if !versionPattern.MatchString(c.Toolchains.GoVersion) {
		result.add("toolchains.go_version", SeverityError, "must look like 1.23.4, got %q", c.Toolchains.GoVersion)
	}
	if c.Toolchains.QtMajor != "5" && c.Toolchains.QtMajor != "6" {
		result.add("toolchains.qt_major", SeverityError, "must be 5 or 6, got %q", c.Toolchains.QtMajor)
	}

	if !validPort(c.CodeServer.Port) {
		result.add("code_server.port", SeverityError, "port %d out of range", c.CodeServer.Port)
	}
	switch c.CodeServer.Auth {
	case "password":
		if c.CodeServer.Password == "" {
			result.add("code_server.password", SeverityWarning, "empty password: code-server will generate one")
		}
	case "none":
		if c.CodeServer.BindAddr != "127.0.0.1" && c.CodeServer.BindAddr != "localhost" {
			result.add("code_server.auth", SeverityWarning, "auth disabled on a non-loopback address")
		}
	default:
		result.add("code_server.auth", SeverityError, "must be password or none, got %q", c.CodeServer.Auth)
	}

	for _, tool := range c.AI.Tools {
		if !contains(KnownAITools, tool) {
			result.add("ai.tools", SeverityError, "unknown AI tool %q", tool)
		}
	}

	if c.VM.ComposeFile == "" {
		result.add("vm.compose_file", SeverityError, "compose file is required")
	}
	if c.VM.User == "" {
		result.add("vm.user", SeverityError, "ssh user is required")
	}
	if !aliasPattern.MatchString(c.VM.SSHAlias) {
		result.add("vm.ssh_alias", SeverityError, "invalid ssh host alias %q", c.VM.SSHAlias)
	}
	guestPorts := map[string]int{
		"vm.ssh_guest_port": c.VM.SSHGuestPort,
		"vm.web_guest_port": c.VM.WebGuestPort,
		"vm.vnc_guest_port": c.VM.VNCGuestPort,
	}
	for field, p := range guestPorts {
		if !validPort(p) {
			result.add(field, SeverityError, "port %d out of range", p)
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.add("log.level", SeverityWarning, "unknown log level %q, using info", c.Log.Level)
	}

	return result
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// checkGoProxy validates a GOPROXY list: entries separated by "," or "|",
// each a proxy URL or one of the keywords direct and off.
func checkGoProxy(raw string) error {
	entries := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' })
	if len(entries) == 0 {
		return fmt.Errorf("GOPROXY %q has no entries", raw)
	}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "direct" || entry == "off" {
			continue
		}
		if err := checkURL(entry); err != nil {
			return err
		}
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
