package doctor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jaspreet-dot-casa/devbox/pkg/component"
	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
)

// Checker provides dependency checking functionality.
type Checker struct {
	executor executor.Executor
	registry *component.Registry
	detector *component.Detector
	cfg      *config.Config
	keys     KeyChecker
	daemon   DaemonClient
	platform string
	host     *platform.Info
	isRoot   bool
}

// NewChecker creates a Checker. keys may be nil when the secret store
// could not be opened.
func NewChecker(exec executor.Executor, registry *component.Registry, cfg *config.Config, keys KeyChecker, home string) *Checker {
	return &Checker{
		executor: exec,
		registry: registry,
		detector: component.NewDetector(exec, home),
		cfg:      cfg,
		keys:     keys,
		platform: runtime.GOOS,
	}
}

// SetDaemon makes the docker check ping the daemon through the API
// instead of the CLI.
func (c *Checker) SetDaemon(d DaemonClient) {
	c.daemon = d
}

// SetRoot marks the process as running as root.
func (c *Checker) SetRoot(root bool) {
	c.isRoot = root
}

// SetHost adds the apt check for host to the host group.
func (c *Checker) SetHost(host platform.Info) {
	c.host = &host
}

// SetPlatform overrides the platform used to select groups.
func (c *Checker) SetPlatform(platform string) {
	c.platform = platform
}

// CheckAll runs every applicable group concurrently. Groups are returned
// in display order.
func (c *Checker) CheckAll(ctx context.Context) ([]CheckGroup, error) {
	groups := GetGroups(c.platform)
	result := make([]CheckGroup, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, group := range groups {
		g.Go(func() error {
			result[i] = c.CheckGroup(gctx, group.ID)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckGroup runs all checks for a specific group.
func (c *Checker) CheckGroup(ctx context.Context, groupID string) CheckGroup {
	def, ok := GetGroupDefinition(groupID)
	if !ok {
		return CheckGroup{
			ID:   groupID,
			Name: "Unknown",
		}
	}

	group := CheckGroup{
		ID:          groupID,
		Name:        def.Name,
		Description: def.Description,
		Platform:    def.Platform,
	}

	switch groupID {
	case GroupHost:
		group.Checks = []Check{
			CheckDocker(ctx, c.executor, c.daemon),
			CheckDockerCompose(ctx, c.executor),
			CheckKVM(c.executor),
			CheckSudo(ctx, c.executor, c.isRoot),
		}
		if c.host != nil {
			group.Checks = append([]Check{CheckAPT(*c.host)}, group.Checks...)
		}
	case GroupToolchains:
		for _, comp := range c.registry.Components {
			// Docker is covered by the host group.
			if comp.Category == component.CategoryAI || comp.Category == component.CategoryContainers {
				continue
			}
			group.Checks = append(group.Checks, CheckComponent(ctx, c.detector, comp))
		}
	case GroupAI:
		for _, comp := range c.registry.ByCategory[component.CategoryAI] {
			if c.cfg != nil && !c.cfg.HasAITool(comp.ID) {
				continue
			}
			group.Checks = append(group.Checks,
				CheckComponent(ctx, c.detector, comp),
				CheckAIKey(c.keys, comp.ID),
			)
		}
	}
	return group
}

// Summary represents an overall health summary.
type Summary struct {
	Total    int
	OK       int
	Missing  int
	Warnings int
	Errors   int
}

// Summary returns a summary of check results.
func (c *Checker) Summary(groups []CheckGroup) Summary {
	var summary Summary

	for _, group := range groups {
		for _, check := range group.Checks {
			summary.Total++
			switch check.Status {
			case StatusOK:
				summary.OK++
			case StatusMissing:
				summary.Missing++
			case StatusWarning:
				summary.Warnings++
			case StatusError:
				summary.Errors++
			}
		}
	}

	return summary
}

// HasIssues returns true if any checks have issues.
func (c *Checker) HasIssues(groups []CheckGroup) bool {
	summary := c.Summary(groups)
	return summary.Missing > 0 || summary.Errors > 0
}

// PendingFixes returns the distinct fixes for failing checks, in check
// order.
func PendingFixes(groups []CheckGroup) []*FixCommand {
	seen := make(map[string]bool)
	var fixes []*FixCommand
	for _, group := range groups {
		for _, check := range group.Checks {
			if check.Status == StatusOK || check.FixCommand == nil {
				continue
			}
			key := check.FixCommand.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			fixes = append(fixes, check.FixCommand)
		}
	}
	return fixes
}
