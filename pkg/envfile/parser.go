// Package envfile parses shell-style environment files such as the devbox
// secrets file and generated export scripts.
package envfile

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Parse parses the env file at path.
func Parse(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseReader(file)
}

// ParseReader parses KEY=VALUE lines. It accepts an optional "export "
// prefix, strips one pair of matching outer quotes, skips blank lines and
// # comments, and splits on the first '='.
func ParseReader(r io.Reader) (map[string]string, error) {
	envVars := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		envVars[key] = unquote(strings.TrimSpace(value))
	}

	return envVars, scanner.Err()
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if (first == '"' || first == '\'') && first == last {
		return value[1 : len(value)-1]
	}
	return value
}
