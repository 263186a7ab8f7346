package component

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
)

// Detection is the result of probing the host for a component.
type Detection struct {
	Installed bool
	Version   string
	Path      string
}

// Detector probes the host for installed components.
type Detector struct {
	exec executor.Executor
	home string
}

// NewDetector creates a detector; home expands "~/" in Locations.
func NewDetector(exec executor.Executor, home string) *Detector {
	return &Detector{exec: exec, home: home}
}

// Detect looks for the component's binaries on PATH, then at its fixed
// locations, and extracts the version from the binary's output.
func (d *Detector) Detect(ctx context.Context, c Component) Detection {
	path := d.find(c)
	if path == "" {
		return Detection{}
	}

	det := Detection{Installed: true, Path: path}
	if len(c.VersionArgs) == 0 || c.VersionPattern == nil {
		return det
	}

	output, err := d.exec.Run(ctx, path, c.VersionArgs...)
	if err != nil && output == "" {
		return det
	}
	if m := c.VersionPattern.FindStringSubmatch(output); len(m) > 1 {
		det.Version = m[1]
	}
	return det
}

func (d *Detector) find(c Component) string {
	for _, bin := range c.Binaries {
		if p, err := d.exec.LookPath(bin); err == nil {
			return p
		}
	}
	for _, loc := range c.Locations {
		if strings.HasPrefix(loc, "~/") {
			if d.home == "" {
				continue
			}
			loc = filepath.Join(d.home, loc[2:])
		}
		if d.exec.FileExists(loc) {
			return loc
		}
	}
	return ""
}
