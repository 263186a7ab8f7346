// Package platform detects the host operating system and architecture.
package platform

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strings"
)

// Platform constants.
const (
	PlatformDarwin  = "darwin"
	PlatformLinux   = "linux"
	PlatformWindows = "windows"
)

// Info describes the host.
type Info struct {
	OS        string // runtime.GOOS
	Arch      string // runtime.GOARCH
	ID        string // os-release ID, e.g. "ubuntu"
	IDLike    []string
	VersionID string // e.g. "24.04"
	Codename  string // e.g. "noble"
	Root      bool
	APTGet    bool // /usr/bin/apt-get exists
}

// Detect gathers host information. fsys is the root filesystem, os.DirFS("/")
// in production.
func Detect(fsys fs.FS) Info {
	info := Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		Root: IsRoot(),
	}

	if info.OS != PlatformLinux || fsys == nil {
		return info
	}

	f, err := fsys.Open("etc/os-release")
	if err != nil {
		f, err = fsys.Open("usr/lib/os-release")
		if err != nil {
			return info
		}
	}
	defer f.Close()

	if _, err := fs.Stat(fsys, "usr/bin/apt-get"); err == nil {
		info.APTGet = true
	}

	release := ParseOSRelease(f)
	info.ID = release["ID"]
	info.VersionID = release["VERSION_ID"]
	info.Codename = release["VERSION_CODENAME"]
	if info.Codename == "" {
		info.Codename = release["UBUNTU_CODENAME"]
	}
	if like := release["ID_LIKE"]; like != "" {
		info.IDLike = strings.Fields(like)
	}

	return info
}

// ParseOSRelease parses an os-release file into key/value pairs.
func ParseOSRelease(r io.Reader) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		values[strings.TrimSpace(key)] = value
	}

	return values
}

// IsRoot reports whether the process runs with euid 0.
func IsRoot() bool {
	if runtime.GOOS == PlatformWindows {
		return false
	}
	return os.Geteuid() == 0
}

// IsDebianFamily reports whether apt-based installation applies.
func (i Info) IsDebianFamily() bool {
	if i.ID == "debian" || i.ID == "ubuntu" {
		return true
	}
	for _, like := range i.IDLike {
		if like == "debian" || like == "ubuntu" {
			return true
		}
	}
	return false
}

// HasAPT reports whether apt-based components can be installed.
func (i Info) HasAPT() bool {
	return i.APTGet && i.IsDebianFamily()
}

// Name is the distribution and version, e.g. "ubuntu 24.04".
func (i Info) Name() string {
	if i.ID == "" {
		return i.OS
	}
	return strings.TrimSpace(i.ID + " " + i.VersionID)
}

// GoArch returns the architecture name used by Go release tarballs.
func (i Info) GoArch() string {
	switch i.Arch {
	case "arm":
		return "armv6l"
	default:
		return i.Arch
	}
}

// RustupArch returns the target triple prefix used by rustup.
func (i Info) RustupArch() string {
	switch i.Arch {
	case "arm64":
		return "aarch64"
	case "amd64":
		return "x86_64"
	default:
		return i.Arch
	}
}
