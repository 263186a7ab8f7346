package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
)

// RCBlockName is the shell rc block that sources the AI env file.
const RCBlockName = "ai"

// Store reads and writes AI provider secrets through a backend.
type Store struct {
	backend Backend
}

// NewStore picks the system keychain when it answers, otherwise the
// secrets file in the config directory. DEVBOX_KEYRING=file forces the file.
func NewStore(logger *log.Logger) (*Store, error) {
	path, err := config.SecretsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get secrets path: %w", err)
	}

	if strings.EqualFold(os.Getenv("DEVBOX_KEYRING"), "file") {
		return NewStoreWithBackend(NewFileBackend(path)), nil
	}
	if keyringAvailable(ServiceName) {
		return NewStoreWithBackend(NewKeyringBackend()), nil
	}

	logger.Info("system keychain unavailable, using file-based secret storage", "path", path)
	return NewStoreWithBackend(NewFileBackend(path)), nil
}

// NewStoreWithBackend creates a store on an explicit backend.
func NewStoreWithBackend(b Backend) *Store {
	return &Store{backend: b}
}

// BackendName describes where secrets are kept.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Set stores one variable for a tool. name may be "key", "base-url" or the
// variable itself.
func (s *Store) Set(tool, name, value string) (string, error) {
	p, err := ProviderFor(tool)
	if err != nil {
		return "", err
	}
	v, err := p.VarFor(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s must not be empty", v)
	}
	if err := s.backend.Set(v, strings.TrimSpace(value)); err != nil {
		return "", err
	}
	return v, nil
}

// Values returns the stored variables for the given tools.
func (s *Store) Values(tools []string) (map[string]string, error) {
	values := map[string]string{}
	for _, tool := range tools {
		p, err := ProviderFor(tool)
		if err != nil {
			return nil, err
		}
		for _, v := range p.Vars() {
			val, err := s.backend.Get(v)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			values[v] = val
		}
	}
	return values, nil
}

// HasKey reports whether the API key for tool is stored.
func (s *Store) HasKey(tool string) (bool, error) {
	p, err := ProviderFor(tool)
	if err != nil {
		return false, err
	}
	_, err = s.backend.Get(p.KeyVar)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Remove deletes every variable stored for tool.
func (s *Store) Remove(tool string) error {
	p, err := ProviderFor(tool)
	if err != nil {
		return err
	}
	for _, v := range p.Vars() {
		if err := s.backend.Delete(v); err != nil {
			return err
		}
	}
	return nil
}

// ExportScript renders shell export lines, sorted by variable.
func ExportScript(values map[string]string) string {
	var b strings.Builder
	for _, kv := range executor.MergeEnv(nil, values) {
		k, v, _ := strings.Cut(kv, "=")
		b.WriteString("export " + k + "=" + executor.Quote(v) + "\n")
	}
	return b.String()
}

// WriteEnvFile writes the export script for tools to path with mode 0600.
func (s *Store) WriteEnvFile(path string, tools []string) error {
	values, err := s.Values(tools)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	content := "# Generated by devbox from stored AI credentials.\n" + ExportScript(values)
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

// RCBlock returns the shell rc block that sources the env file.
func RCBlock(envPath string) string {
	q := executor.Quote(envPath)
	return fmt.Sprintf("[ -f %s ] && . %s", q, q)
}
