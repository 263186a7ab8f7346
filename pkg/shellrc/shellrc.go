// Package shellrc maintains devbox-managed blocks inside shell rc files and
// other line-oriented config files (~/.bashrc, ~/.zshrc, ~/.ssh/config).
//
// A block looks like:
//
//	# >>> devbox:go >>>
//	export PATH="$PATH:/usr/local/go/bin"
//	# <<< devbox:go <<<
//
// Applying the same block twice leaves the file unchanged.
package shellrc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// BeginMarker returns the opening marker line for a block.
func BeginMarker(name string) string {
	return fmt.Sprintf("# >>> devbox:%s >>>", name)
}

// EndMarker returns the closing marker line for a block.
func EndMarker(name string) string {
	return fmt.Sprintf("# <<< devbox:%s <<<", name)
}

// Render returns the full block including markers and trailing newline.
func Render(name, body string) string {
	body = strings.TrimRight(body, "\n")
	return BeginMarker(name) + "\n" + body + "\n" + EndMarker(name) + "\n"
}

// find returns the byte range [start, end) of the block, end including the
// newline after the end marker. ok is false when the block is absent or the
// end marker is missing.
func find(content, name string) (start, end int, ok bool) {
	begin := BeginMarker(name)
	finish := EndMarker(name)

	start = indexLine(content, begin, 0)
	if start < 0 {
		return 0, 0, false
	}
	endLine := indexLine(content, finish, start)
	if endLine < 0 {
		return 0, 0, false
	}
	end = endLine + len(finish)
	if end < len(content) && content[end] == '\n' {
		end++
	}
	return start, end, true
}

// indexLine finds line as a whole line in content starting at from.
func indexLine(content, line string, from int) int {
	for from <= len(content) {
		i := strings.Index(content[from:], line)
		if i < 0 {
			return -1
		}
		pos := from + i
		atStart := pos == 0 || content[pos-1] == '\n'
		after := pos + len(line)
		atEnd := after == len(content) || content[after] == '\n' || content[after] == '\r'
		if atStart && atEnd {
			return pos
		}
		from = pos + 1
	}
	return -1
}

// Upsert inserts or replaces the named block. It reports whether content
// changed.
func Upsert(content, name, body string) (string, bool) {
	block := Render(name, body)

	if start, end, ok := find(content, name); ok {
		if content[start:end] == block || content[start:end]+"\n" == block {
			return content, false
		}
		return content[:start] + block + content[end:], true
	}

	var b strings.Builder
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	if content != "" {
		b.WriteString("\n")
	}
	b.WriteString(block)
	return b.String(), true
}

// Remove deletes the named block. It reports whether content changed.
func Remove(content, name string) (string, bool) {
	start, end, ok := find(content, name)
	if !ok {
		return content, false
	}
	out := content[:start] + content[end:]
	// Drop the blank separator line Upsert added.
	if strings.HasSuffix(out[:start], "\n\n") && start == len(out) {
		out = out[:len(out)-1]
	}
	return out, true
}

// Extract returns the body of the named block.
func Extract(content, name string) (string, bool) {
	start, end, ok := find(content, name)
	if !ok {
		return "", false
	}
	block := content[start:end]
	block = strings.TrimPrefix(block, BeginMarker(name)+"\n")
	block = strings.TrimSuffix(strings.TrimSuffix(block, "\n"), EndMarker(name))
	return strings.TrimSuffix(block, "\n"), true
}

// ApplyFile upserts the block into the file at path, creating the file and
// its directory when missing. The write is atomic and keeps the file mode.
func ApplyFile(path, name, body string) (bool, error) {
	return editFile(path, func(content string) (string, bool) {
		return Upsert(content, name, body)
	})
}

// RemoveFromFile removes the block from the file at path, if present.
func RemoveFromFile(path, name string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	return editFile(path, func(content string) (string, bool) {
		return Remove(content, name)
	})
}

func editFile(path string, edit func(string) (string, bool)) (bool, error) {
	mode := os.FileMode(0644)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return false, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	default:
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated, changed := edit(string(data))
	if !changed {
		return false, nil
	}

	if err := atomic.WriteFile(path, bytes.NewReader([]byte(updated))); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return true, fmt.Errorf("failed to restore mode on %s: %w", path, err)
	}
	return true, nil
}

// RCFiles returns the shell rc files devbox should manage for home.
// ~/.bashrc is always included; ~/.zshrc when it exists or zsh is the login
// shell. ~/.profile is used when neither is present.
func RCFiles(home, loginShell string) []string {
	bashrc := filepath.Join(home, ".bashrc")
	zshrc := filepath.Join(home, ".zshrc")

	var files []string
	if exists(bashrc) || strings.HasSuffix(loginShell, "bash") {
		files = append(files, bashrc)
	}
	if exists(zshrc) || strings.HasSuffix(loginShell, "zsh") {
		files = append(files, zshrc)
	}
	if len(files) == 0 {
		files = append(files, filepath.Join(home, ".profile"))
	}
	return files
}

// ApplyRC upserts the block into every rc file for home.
func ApplyRC(home, loginShell, name, body string) ([]string, error) {
	var changed []string
	for _, f := range RCFiles(home, loginShell) {
		ok, err := ApplyFile(f, name, body)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, f)
		}
	}
	return changed, nil
}

// RemoveRC removes the block from every rc file for home and returns the
// files that changed.
func RemoveRC(home, loginShell, name string) ([]string, error) {
	var changed []string
	for _, f := range RCFiles(home, loginShell) {
		ok, err := RemoveFromFile(f, name)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, f)
		}
	}
	return changed, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
