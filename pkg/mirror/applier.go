package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
	"github.com/jaspreet-dot-casa/devbox/pkg/shellrc"
)

// Kind identifies a package manager devbox can point at a mirror.
type Kind string

const (
	KindAPT    Kind = "apt"
	KindPip    Kind = "pip"
	KindNpm    Kind = "npm"
	KindGo     Kind = "go"
	KindRust   Kind = "rust"
	KindDocker Kind = "docker"
)

// Shell rc blocks holding mirror exports.
const (
	rcGoBlock     = "mirror-go"
	rcRustupBlock = "mirror-rustup"
)

// AllKinds lists every kind in apply order.
var AllKinds = []Kind{KindAPT, KindPip, KindNpm, KindGo, KindRust, KindDocker}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown mirror kind %q (want one of apt, pip, npm, go, rust, docker)", s)
}

// Change describes the outcome of applying one kind.
type Change struct {
	Kind    Kind
	Targets []string // files or commands touched
	Changed bool
	Skipped bool
	Detail  string
}

// Setting is one row of the effective mirror configuration.
type Setting struct {
	Kind  Kind
	Value string
}

// Show describes the effective mirror settings. Unset kinds read "upstream".
func Show(m config.MirrorConfig) []Setting {
	value := func(s string) string {
		if s == "" {
			return "upstream"
		}
		return s
	}

	rust := value(m.CratesMirror)
	if m.RustupDist != "" {
		rust = fmt.Sprintf("crates: %s, rustup: %s", value(m.CratesMirror), m.RustupDist)
	}
	docker := "upstream"
	if len(m.DockerMirrors) > 0 {
		docker = strings.Join(m.DockerMirrors, ", ")
	}

	return []Setting{
		{KindAPT, value(m.APT)},
		{KindPip, value(m.PipIndex)},
		{KindNpm, value(m.NpmRegistry)},
		{KindGo, value(m.GoProxy)},
		{KindRust, rust},
		{KindDocker, docker},
	}
}

// Env returns the environment variables installers should see so that
// downloads honor the configured mirrors.
func Env(m config.MirrorConfig) map[string]string {
	env := RustupEnv(m.RustupDist, m.RustupUpdate)
	if m.GoProxy != "" {
		env["GOPROXY"] = GoProxyValue(m.GoProxy)
	}
	if m.PipIndex != "" {
		env["PIP_INDEX_URL"] = m.PipIndex
	}
	if m.NpmRegistry != "" {
		env["NPM_CONFIG_REGISTRY"] = m.NpmRegistry
	}
	return env
}

// Applier writes mirror settings to the host.
type Applier struct {
	exec   executor.Executor
	cfg    config.MirrorConfig
	logger *log.Logger

	// Root is the filesystem root holding /etc; "/" outside tests.
	Root string
	// Home is the user's home directory for per-user config files.
	Home string
	// LoginShell selects which rc files get environment exports.
	LoginShell string
	// IsRoot disables the sudo wrapper for system files.
	IsRoot bool
	// DryRun reports user-file edits to Out instead of writing them.
	// System-file edits go through the executor, which records them.
	DryRun bool
	Out    io.Writer
}

// NewApplier creates an applier for the current user and host.
func NewApplier(exec executor.Executor, cfg config.MirrorConfig, logger *log.Logger) *Applier {
	home, _ := os.UserHomeDir()
	return &Applier{
		exec:       exec,
		cfg:        cfg,
		logger:     logger,
		Root:       "/",
		Home:       home,
		LoginShell: os.Getenv("SHELL"),
		IsRoot:     platform.IsRoot(),
		Out:        os.Stdout,
	}
}

// ApplyAll applies the given kinds in order; nil means all kinds. Kinds
// whose mirror setting is empty are skipped. The first failure stops the
// run and is returned with the changes made so far.
func (a *Applier) ApplyAll(ctx context.Context, kinds []Kind) ([]Change, error) {
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	var changes []Change
	for _, k := range kinds {
		var (
			ch  Change
			err error
		)
		switch k {
		case KindAPT:
			ch, err = a.ApplyAPT(ctx)
		case KindPip:
			ch, err = a.ApplyPip()
		case KindNpm:
			ch, err = a.ApplyNpm()
		case KindGo:
			ch, err = a.ApplyGoProxy(ctx)
		case KindRust:
			ch, err = a.ApplyRust()
		case KindDocker:
			ch, err = a.ApplyDocker(ctx)
		default:
			err = fmt.Errorf("unknown mirror kind %q", k)
		}
		if err != nil {
			return changes, fmt.Errorf("%s mirror: %w", k, err)
		}
		changes = append(changes, ch)
	}
	return changes, nil
}

func skipped(k Kind) Change {
	return Change{Kind: k, Skipped: true, Detail: "no mirror configured"}
}

// ApplyAPT rewrites the APT source files and refreshes the package index.
// Each file is backed up once. Later runs edit the current file, moving
// entries from the recorded previous mirror to the new one, so lines added
// since the last run are kept.
func (a *Applier) ApplyAPT(ctx context.Context) (Change, error) {
	if a.cfg.APT == "" {
		return skipped(KindAPT), nil
	}

	ch := Change{Kind: KindAPT}
	for _, path := range APTSourceFiles(a.Root) {
		current, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return ch, fmt.Errorf("failed to read %s: %w", path, err)
		}

		previous := AppliedMirror(string(current))
		rewritten, changed := RewriteSourcesFrom(string(current), a.cfg.APT, previous)
		if !changed {
			continue
		}
		rewritten = MarkMirror(rewritten, a.cfg.APT)

		backup := path + BackupSuffix

		script := fmt.Sprintf("[ -e %[2]s ] || cp -p %[1]s %[2]s\n", executor.Quote(path), executor.Quote(backup)) +
			writeScript(path, rewritten)
		if err := a.exec.Shell(ctx, executor.SudoWrap(script, a.IsRoot), nil); err != nil {
			return ch, fmt.Errorf("failed to write %s: %w", path, err)
		}
		a.logger.Debug("rewrote apt sources", "file", path, "mirror", a.cfg.APT)
		ch.Targets = append(ch.Targets, path)
		ch.Changed = true
	}

	if len(ch.Targets) == 0 {
		ch.Detail = "sources already point at " + a.cfg.APT
		return ch, nil
	}

	update := executor.SudoWrap("apt-get update", a.IsRoot)
	if err := a.exec.Shell(ctx, update, map[string]string{"DEBIAN_FRONTEND": "noninteractive"}); err != nil {
		return ch, fmt.Errorf("apt-get update failed: %w", err)
	}
	ch.Detail = "apt-get update done"
	return ch, nil
}

// RestoreAPT puts the backed up APT sources back in place.
func (a *Applier) RestoreAPT(ctx context.Context) (Change, error) {
	ch := Change{Kind: KindAPT}
	for _, path := range APTSourceFiles(a.Root) {
		backup := path + BackupSuffix
		if _, err := os.Stat(backup); err != nil {
			continue
		}
		script := fmt.Sprintf("cp -p %s %s\nrm -f %s", executor.Quote(backup), executor.Quote(path), executor.Quote(backup))
		if err := a.exec.Shell(ctx, executor.SudoWrap(script, a.IsRoot), nil); err != nil {
			return ch, fmt.Errorf("failed to restore %s: %w", path, err)
		}
		ch.Targets = append(ch.Targets, path)
		ch.Changed = true
	}
	if !ch.Changed {
		ch.Detail = "no backups found"
	}
	return ch, nil
}

// RestoreRC removes the mirror export blocks from the shell rc files.
func (a *Applier) RestoreRC() (Change, error) {
	ch := Change{Kind: "rc"}
	for _, name := range []string{rcGoBlock, rcRustupBlock} {
		if a.DryRun {
			a.report("remove %s block from rc files", name)
			continue
		}
		files, err := shellrc.RemoveRC(a.Home, a.LoginShell, name)
		if err != nil {
			return ch, fmt.Errorf("failed to update shell rc: %w", err)
		}
		ch.Targets = append(ch.Targets, files...)
	}
	ch.Changed = len(ch.Targets) > 0
	if !ch.Changed {
		ch.Detail = "no mirror exports in shell rc files"
	}
	return ch, nil
}

// ApplyPip sets the index in ~/.config/pip/pip.conf.
func (a *Applier) ApplyPip() (Change, error) {
	if a.cfg.PipIndex == "" {
		return skipped(KindPip), nil
	}
	path := filepath.Join(a.Home, ".config", "pip", "pip.conf")
	return a.editUserFile(KindPip, path, func(content string) (string, error) {
		return SetPipIndex(content, a.cfg.PipIndex)
	})
}

// ApplyNpm sets the registry in ~/.npmrc.
func (a *Applier) ApplyNpm() (Change, error) {
	if a.cfg.NpmRegistry == "" {
		return skipped(KindNpm), nil
	}
	path := filepath.Join(a.Home, ".npmrc")
	return a.editUserFile(KindNpm, path, func(content string) (string, error) {
		return SetNpmRegistry(content, a.cfg.NpmRegistry)
	})
}

// ApplyGoProxy sets GOPROXY with `go env -w` when go is installed and
// exports it from the shell rc files either way.
func (a *Applier) ApplyGoProxy(ctx context.Context) (Change, error) {
	if a.cfg.GoProxy == "" {
		return skipped(KindGo), nil
	}
	value := GoProxyValue(a.cfg.GoProxy)
	ch := Change{Kind: KindGo, Detail: "GOPROXY=" + value}

	if _, err := a.exec.LookPath("go"); err == nil {
		if out, err := a.exec.CombinedOutput(ctx, "go", "env", "-w", "GOPROXY="+value); err != nil {
			return ch, fmt.Errorf("go env -w failed: %s: %w", strings.TrimSpace(string(out)), err)
		}
		ch.Targets = append(ch.Targets, "go env")
		ch.Changed = true
	}

	files, err := a.applyRC(rcGoBlock, "export GOPROXY="+executor.Quote(value))
	if err != nil {
		return ch, err
	}
	ch.Targets = append(ch.Targets, files...)
	ch.Changed = ch.Changed || len(files) > 0
	return ch, nil
}

// ApplyRust writes the crates.io replacement into ~/.cargo/config.toml and
// exports the rustup mirror variables.
func (a *Applier) ApplyRust() (Change, error) {
	if a.cfg.CratesMirror == "" && a.cfg.RustupDist == "" && a.cfg.RustupUpdate == "" {
		return skipped(KindRust), nil
	}

	ch := Change{Kind: KindRust}
	if a.cfg.CratesMirror != "" {
		path := filepath.Join(a.Home, ".cargo", "config.toml")
		cargo, err := a.editUserFile(KindRust, path, func(content string) (string, error) {
			out, err := CargoConfig([]byte(content), a.cfg.CratesMirror)
			return string(out), err
		})
		if err != nil {
			return ch, err
		}
		ch = cargo
	}

	env := RustupEnv(a.cfg.RustupDist, a.cfg.RustupUpdate)
	if len(env) > 0 {
		var lines []string
		for _, kv := range executor.MergeEnv(nil, env) {
			k, v, _ := strings.Cut(kv, "=")
			lines = append(lines, "export "+k+"="+executor.Quote(v))
		}
		files, err := a.applyRC(rcRustupBlock, strings.Join(lines, "\n"))
		if err != nil {
			return ch, err
		}
		ch.Targets = append(ch.Targets, files...)
		ch.Changed = ch.Changed || len(files) > 0
	}
	return ch, nil
}

// ApplyDocker sets registry-mirrors in /etc/docker/daemon.json and restarts
// the daemon when systemd manages it.
func (a *Applier) ApplyDocker(ctx context.Context) (Change, error) {
	if len(a.cfg.DockerMirrors) == 0 {
		return skipped(KindDocker), nil
	}

	path := filepath.Join(a.Root, "etc", "docker", "daemon.json")
	ch := Change{Kind: KindDocker}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return ch, fmt.Errorf("failed to read %s: %w", path, err)
	}
	merged, changed, err := MergeDaemonJSON(existing, a.cfg.DockerMirrors)
	if err != nil {
		return ch, err
	}
	if !changed {
		ch.Detail = "registry-mirrors already set"
		return ch, nil
	}

	if err := a.exec.Shell(ctx, executor.SudoWrap(writeScript(path, string(merged)), a.IsRoot), nil); err != nil {
		return ch, fmt.Errorf("failed to write %s: %w", path, err)
	}
	ch.Targets = append(ch.Targets, path)
	ch.Changed = true

	if _, err := a.exec.LookPath("systemctl"); err == nil {
		if err := a.exec.Shell(ctx, executor.SudoWrap("systemctl restart docker", a.IsRoot), nil); err != nil {
			a.logger.Warn("docker restart failed; restart it manually", "err", err)
		} else {
			ch.Detail = "docker restarted"
		}
	}
	return ch, nil
}

// writeScript renders a shell script that writes content to path.
func writeScript(path, content string) string {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return fmt.Sprintf("mkdir -p %s\ncat > %s <<'DEVBOX_EOF'\n%sDEVBOX_EOF\n",
		executor.Quote(filepath.Dir(path)), executor.Quote(path), content)
}

func (a *Applier) editUserFile(k Kind, path string, edit func(string) (string, error)) (Change, error) {
	ch := Change{Kind: k}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return ch, fmt.Errorf("failed to read %s: %w", path, err)
	}
	updated, err := edit(string(data))
	if err != nil {
		return ch, err
	}
	if updated == string(data) {
		ch.Detail = "already configured"
		return ch, nil
	}

	ch.Targets = []string{path}
	ch.Changed = true
	if a.DryRun {
		a.report("write %s", path)
		return ch, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ch, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(updated))); err != nil {
		return ch, fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.logger.Debug("wrote mirror config", "kind", k, "file", path)
	return ch, nil
}

func (a *Applier) applyRC(name, body string) ([]string, error) {
	if a.DryRun {
		files := shellrc.RCFiles(a.Home, a.LoginShell)
		for _, f := range files {
			a.report("update %s block in %s", name, f)
		}
		return files, nil
	}
	files, err := shellrc.ApplyRC(a.Home, a.LoginShell, name, body)
	if err != nil {
		return files, fmt.Errorf("failed to update shell rc: %w", err)
	}
	return files, nil
}

func (a *Applier) report(format string, args ...any) {
	if a.Out != nil {
		fmt.Fprintf(a.Out, "+ "+format+"\n", args...)
	}
}
