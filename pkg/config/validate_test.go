package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issueFields(r *ValidationResult) []string {
	fields := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		fields = append(fields, issue.Field)
	}
	return fields
}

func TestValidate_Defaults(t *testing.T) {
	cfg := NewConfig()
	cfg.CodeServer.Password = "secret"

	result := cfg.Validate()

	assert.False(t, result.HasErrors())
	assert.Equal(t, 0, result.WarningCount())
}

func TestValidate_EmptyPasswordIsWarning(t *testing.T) {
	result := NewConfig().Validate()

	assert.False(t, result.HasErrors())
	assert.Equal(t, 1, result.WarningCount())
	assert.Contains(t, issueFields(result), "code_server.password")
}

func TestValidate_BadMirrors(t *testing.T) {
	cfg := NewConfig()
	cfg.CodeServer.Password = "x"
	cfg.Mirrors.APT = "ftp://mirror.example.com/ubuntu"
	cfg.Mirrors.PipIndex = "not a url"
	cfg.Mirrors.DockerMirrors = []string{"https://ok.example.com", "https://"}
	cfg.Mirrors.GoProxy = "direct"

	result := cfg.Validate()

	assert.Equal(t, 3, result.ErrorCount())
	fields := issueFields(result)
	assert.Contains(t, fields, "mirrors.apt")
	assert.Contains(t, fields, "mirrors.pip_index")
	assert.Contains(t, fields, "mirrors.docker_mirrors[1]")
}

func TestValidate_Toolchains(t *testing.T) {
	cfg := NewConfig()
	cfg.CodeServer.Password = "x"
	cfg.Toolchains.NodeMajor = "lts"
	cfg.Toolchains.GoVersion = "go1.23"
	cfg.Toolchains.QtMajor = "4"

	result := cfg.Validate()

	fields := issueFields(result)
	assert.Contains(t, fields, "toolchains.node_major")
	assert.Contains(t, fields, "toolchains.go_version")
	assert.Contains(t, fields, "toolchains.qt_major")
}

func TestValidate_VMAndAI(t *testing.T) {
	cfg := NewConfig()
	cfg.CodeServer.Password = "x"
	cfg.VM.SSHAlias = "bad alias"
	cfg.VM.SSHGuestPort = 70000
	cfg.VM.User = ""
	cfg.AI.Tools = []string{"claude-code", "copilot"}

	result := cfg.Validate()

	fields := issueFields(result)
	assert.Contains(t, fields, "vm.ssh_alias")
	assert.Contains(t, fields, "vm.ssh_guest_port")
	assert.Contains(t, fields, "vm.user")
	assert.Contains(t, fields, "ai.tools")
	assert.Equal(t, 4, result.ErrorCount())
}

func TestValidate_AuthNoneOnPublicAddress(t *testing.T) {
	cfg := NewConfig()
	cfg.CodeServer.Auth = "none"

	result := cfg.Validate()

	assert.False(t, result.HasErrors())
	assert.Contains(t, issueFields(result), "code_server.auth")
}

func TestValidate_GoProxyList(t *testing.T) {
	tests := []struct {
		name    string
		proxy   string
		wantErr bool
	}{
		{"keyword", "off", false},
		{"single url", "https://goproxy.cn", false},
		{"comma list", "https://goproxy.cn,direct", false},
		{"pipe list", "https://goproxy.cn|https://proxy.golang.org|off", false},
		{"bad second entry", "https://goproxy.cn,ftp://bad.example.com", true},
		{"bare host entry", "goproxy.cn,direct", true},
		{"only separators", ",|", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.CodeServer.Password = "x"
			cfg.Mirrors.GoProxy = tt.proxy

			result := cfg.Validate()

			assert.Equal(t, tt.wantErr, result.HasErrors())
			if tt.wantErr {
				assert.Contains(t, issueFields(result), "mirrors.go_proxy")
			}
		})
	}
}
