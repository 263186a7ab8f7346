// Package install plans and runs component installs.
package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"

	"github.com/jaspreet-dot-casa/devbox/pkg/component"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
	"github.com/jaspreet-dot-casa/devbox/pkg/mirror"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
	"github.com/jaspreet-dot-casa/devbox/pkg/shellrc"
	"github.com/jaspreet-dot-casa/devbox/pkg/state"
)

// ErrUnsupportedHost is returned by Plan when a component cannot be
// installed on this host.
var ErrUnsupportedHost = errors.New("unsupported host")

// Options controls an install run.
type Options struct {
	DryRun bool // Executor records commands; state and rc files are left alone
	Force  bool // Reinstall components that are already present
}

// Action is what a plan does with a component.
type Action string

const (
	ActionInstall Action = "install"
	ActionSkip    Action = "skip"
)

// PlanItem is one component in a plan.
type PlanItem struct {
	Component component.Component
	Action    Action
	Detection component.Detection
	Reason    string
}

// Plan is an ordered list of components to process.
type Plan struct {
	Items []PlanItem
}

// Installs returns the number of items that will be installed.
func (p *Plan) Installs() int {
	n := 0
	for _, it := range p.Items {
		if it.Action == ActionInstall {
			n++
		}
	}
	return n
}

// Status is the outcome of one plan item.
type Status string

const (
	StatusInstalled Status = "installed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusNotRun    Status = "not run"
)

// ItemResult is the outcome of one plan item.
type ItemResult struct {
	ID       string
	Status   Status
	Version  string
	Err      error
	Duration time.Duration
}

// Result summarizes an install run.
type Result struct {
	RunID    string
	Items    []ItemResult
	Duration time.Duration
}

// Failed returns the failed item, or nil.
func (r *Result) Failed() *ItemResult {
	for i := range r.Items {
		if r.Items[i].Status == StatusFailed {
			return &r.Items[i]
		}
	}
	return nil
}

// Installer resolves and installs components.
type Installer struct {
	exec     executor.Executor
	registry *component.Registry
	store    *state.Store
	detector *component.Detector
	logger   *log.Logger
	cctx     component.Context
	opts     Options

	// IsRoot disables the sudo wrapper.
	IsRoot bool
	// LoginShell selects which rc files receive component blocks.
	LoginShell string
	// Out receives "+ write" lines for file steps in dry-run mode.
	Out io.Writer
}

// New creates an installer.
func New(exec executor.Executor, registry *component.Registry, store *state.Store, cctx component.Context, logger *log.Logger, opts Options) *Installer {
	return &Installer{
		exec:       exec,
		registry:   registry,
		store:      store,
		detector:   component.NewDetector(exec, cctx.Home),
		logger:     logger,
		cctx:       cctx,
		opts:       opts,
		IsRoot:     platform.IsRoot(),
		LoginShell: os.Getenv("SHELL"),
		Out:        os.Stdout,
	}
}

// Plan resolves ids with their requirements and decides per component
// whether to install or skip it.
func (i *Installer) Plan(ctx context.Context, ids []string) (*Plan, error) {
	comps, err := i.registry.Resolve(ids)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	plan := &Plan{}
	for _, c := range comps {
		det := i.detector.Detect(ctx, c)
		item := PlanItem{Component: c, Action: ActionInstall, Detection: det}

		switch {
		case det.Installed && i.opts.Force && requested[c.ID]:
			item.Reason = "forced reinstall"
		case det.Installed:
			item.Action = ActionSkip
			item.Reason = "already installed"
			if det.Version != "" {
				item.Reason += " (" + det.Version + ")"
			}
		case !requested[c.ID]:
			item.Reason = "required by another component"
		}
		if item.Action == ActionInstall && c.UsesAPT && !i.cctx.Platform.HasAPT() {
			return nil, fmt.Errorf("%w: %s installs with apt-get, which %s does not have",
				ErrUnsupportedHost, c.ID, i.cctx.Platform.Name())
		}
		plan.Items = append(plan.Items, item)
	}
	return plan, nil
}

// Run executes the plan in order. It stops at the first failing component;
// components after it are reported as not run.
func (i *Installer) Run(ctx context.Context, plan *Plan, progress ProgressCallback) (*Result, error) {
	if progress == nil {
		progress = NoOpProgress
	}

	start := time.Now()
	result := &Result{RunID: state.NewRunID()}
	env := mirror.Env(i.cctx.Config.Mirrors)
	total := len(plan.Items)
	progress(newEvent(StagePlanning, "",
		fmt.Sprintf("%d to install, %d already present", plan.Installs(), total-plan.Installs()), 0, total))

	var runErr error
	for n, item := range plan.Items {
		id := item.Component.ID
		current := n + 1

		if runErr != nil {
			result.Items = append(result.Items, ItemResult{ID: id, Status: StatusNotRun})
			continue
		}

		if item.Action == ActionSkip {
			progress(newEvent(StageSkipped, id, item.Reason, current, total))
			result.Items = append(result.Items, ItemResult{ID: id, Status: StatusSkipped, Version: item.Detection.Version})
			continue
		}

		itemStart := time.Now()
		version, err := i.installOne(ctx, item.Component, env, current, total, progress)
		res := ItemResult{ID: id, Status: StatusInstalled, Version: version, Duration: time.Since(itemStart)}
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			runErr = fmt.Errorf("install %s: %w", id, err)
			progress(newErrorEvent(id, "install failed", err.Error(), current, total))
		} else {
			progress(newEvent(StageDone, id, item.Component.Name+" installed", current, total))
			if !i.opts.DryRun {
				if err := i.store.MarkInstalled(id, version, result.RunID); err != nil {
					i.logger.Warn("failed to record install", "component", id, "err", err)
				}
			}
		}
		result.Items = append(result.Items, res)
	}

	result.Duration = time.Since(start)
	if !i.opts.DryRun && plan.Installs() > 0 {
		i.recordRun(result, start, runErr)
	}
	if runErr == nil {
		progress(newEvent(StageComplete, "", "install complete", total, total))
	}
	return result, runErr
}

func (i *Installer) installOne(ctx context.Context, c component.Component, env map[string]string, current, total int, progress ProgressCallback) (string, error) {
	steps, err := c.Steps(i.cctx)
	if err != nil {
		return "", fmt.Errorf("failed to render steps: %w", err)
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		progress(newEvent(StageInstalling, c.ID, step.Description, current, total))
		i.logger.Debug("running step", "component", c.ID, "step", step.Description, "sudo", step.Sudo)

		if step.File != nil {
			if err := i.writeFile(step.File); err != nil {
				return "", fmt.Errorf("%s: %w", step.Description, err)
			}
			continue
		}

		script := step.Script
		if step.Sudo {
			script = executor.SudoWrap(script, i.IsRoot)
		}
		if err := i.exec.Shell(ctx, script, env); err != nil {
			return "", fmt.Errorf("%s: %w", step.Description, err)
		}
	}

	if c.RCBlock != nil {
		progress(newEvent(StageConfiguring, c.ID, "updating shell rc files", current, total))
		if !i.opts.DryRun {
			files, err := shellrc.ApplyRC(i.cctx.Home, i.LoginShell, c.ID, c.RCBlock(i.cctx))
			if err != nil {
				return "", fmt.Errorf("failed to update shell rc: %w", err)
			}
			for _, f := range files {
				i.logger.Debug("updated rc file", "component", c.ID, "file", f)
			}
		}
	}

	if i.opts.DryRun {
		return "", nil
	}
	progress(newEvent(StageVerifying, c.ID, "checking installed version", current, total))
	det := i.detector.Detect(ctx, c)
	if !det.Installed {
		i.logger.Warn("component not found on PATH after install; open a new shell", "component", c.ID)
	}
	return det.Version, nil
}

// writeFile writes a file step as the current user.
func (i *Installer) writeFile(f *component.File) error {
	if i.opts.DryRun {
		fmt.Fprintf(i.Out, "+ write %s\n", f.Path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(f.Path), err)
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(f.Data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return os.Chmod(f.Path, f.Mode)
}

func (i *Installer) recordRun(result *Result, start time.Time, runErr error) {
	run := state.Run{
		ID:         result.RunID,
		StartedAt:  start,
		FinishedAt: start.Add(result.Duration),
		Success:    runErr == nil,
	}
	for _, it := range result.Items {
		if it.Status == StatusInstalled || it.Status == StatusFailed {
			run.Components = append(run.Components, it.ID)
		}
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := i.store.RecordRun(run); err != nil {
		i.logger.Warn("failed to record run", "err", err)
	}
}
