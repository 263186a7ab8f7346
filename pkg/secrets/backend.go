package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/zalando/go-keyring"

	"github.com/jaspreet-dot-casa/devbox/pkg/envfile"
)

// ServiceName is the keyring service devbox stores secrets under.
const ServiceName = "devbox"

var (
	// ErrNotFound is returned when a secret is not stored.
	ErrNotFound = errors.New("secret not found")
	// ErrInsecurePermissions is returned when the secrets file is readable
	// by other users.
	ErrInsecurePermissions = errors.New("secrets file has insecure permissions")
)

// Backend defines the interface for secret storage.
type Backend interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
	Name() string
}

// keyringBackend stores secrets in the system keychain.
type keyringBackend struct {
	service string
}

func (k *keyringBackend) Get(name string) (string, error) {
	v, err := keyring.Get(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return v, nil
}

func (k *keyringBackend) Set(name, value string) error {
	if err := keyring.Set(k.service, name, value); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

func (k *keyringBackend) Delete(name string) error {
	err := keyring.Delete(k.service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

func (k *keyringBackend) Name() string {
	return "system keychain"
}

// fileBackend stores secrets as KEY=value lines in a 0600 file.
type fileBackend struct {
	path string
}

func (f *fileBackend) read() (map[string]string, error) {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return nil, fmt.Errorf("%w: %s has permissions %04o (expected 0600); run chmod 600 %s",
			ErrInsecurePermissions, f.path, perm, f.path)
	}
	values, err := envfile.Parse(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	return values, nil
}

func (f *fileBackend) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating secrets directory: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("# Managed by devbox. Do not edit while devbox is running.\n")
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, values[k])
	}

	if err := atomic.WriteFile(f.path, &buf); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return os.Chmod(f.path, 0600)
}

func (f *fileBackend) Get(name string) (string, error) {
	values, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *fileBackend) Set(name, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("secret %s must be a single line", name)
	}
	values, err := f.read()
	if err != nil {
		return err
	}
	values[name] = value
	return f.write(values)
}

func (f *fileBackend) Delete(name string) error {
	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)
	return f.write(values)
}

func (f *fileBackend) Name() string {
	return "file (" + f.path + ")"
}

// NewKeyringBackend returns the system keychain backend.
func NewKeyringBackend() Backend {
	return &keyringBackend{service: ServiceName}
}

// NewFileBackend returns a file backend at path.
func NewFileBackend(path string) Backend {
	return &fileBackend{path: path}
}

// keyringAvailable probes the keychain with a lookup of a name that is
// never stored. Only ErrNotFound proves the keychain answered.
func keyringAvailable(service string) bool {
	_, err := keyring.Get(service, "devbox-probe")
	return errors.Is(err, keyring.ErrNotFound)
}
