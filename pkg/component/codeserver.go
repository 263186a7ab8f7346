package component

import (
	"fmt"
	"net"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
)

// codeServerFile mirrors ~/.config/code-server/config.yaml.
type codeServerFile struct {
	BindAddr string `yaml:"bind-addr"`
	Auth     string `yaml:"auth"`
	Password string `yaml:"password,omitempty"`
	Cert     bool   `yaml:"cert"`
}

// CodeServerConfig renders code-server's config.yaml.
func CodeServerConfig(cs config.CodeServerConfig) ([]byte, error) {
	f := codeServerFile{
		BindAddr: net.JoinHostPort(cs.BindAddr, strconv.Itoa(cs.Port)),
		Auth:     cs.Auth,
	}
	if cs.Auth == "password" {
		f.Password = cs.Password
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to render code-server config: %w", err)
	}
	return data, nil
}
