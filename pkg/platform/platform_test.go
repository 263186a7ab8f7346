package platform

import (
	"runtime"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

const ubuntuRelease = `PRETTY_NAME="Ubuntu 24.04.1 LTS"
NAME="Ubuntu"
VERSION_ID="24.04"
VERSION="24.04.1 LTS (Noble Numbat)"
VERSION_CODENAME=noble
ID=ubuntu
ID_LIKE=debian
# comment
UBUNTU_CODENAME=noble
`

func TestParseOSRelease(t *testing.T) {
	values := ParseOSRelease(strings.NewReader(ubuntuRelease))

	assert.Equal(t, "ubuntu", values["ID"])
	assert.Equal(t, "24.04", values["VERSION_ID"])
	assert.Equal(t, "noble", values["VERSION_CODENAME"])
	assert.Equal(t, "Ubuntu 24.04.1 LTS", values["PRETTY_NAME"])
	assert.NotContains(t, values, "# comment")
}

func TestDetect_Linux(t *testing.T) {
	if runtime.GOOS != PlatformLinux {
		t.Skip("os-release parsing only runs on linux")
	}

	fsys := fstest.MapFS{
		"etc/os-release":  &fstest.MapFile{Data: []byte(ubuntuRelease)},
		"usr/bin/apt-get":  &fstest.MapFile{Mode: 0755},
	}

	info := Detect(fsys)

	assert.Equal(t, "ubuntu", info.ID)
	assert.Equal(t, "noble", info.Codename)
	assert.Equal(t, []string{"debian"}, info.IDLike)
	assert.True(t, info.IsDebianFamily())
	assert.True(t, info.HasAPT())
}

func TestDetect_MissingRelease(t *testing.T) {
	info := Detect(fstest.MapFS{})

	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Empty(t, info.ID)
	assert.False(t, info.IsDebianFamily())
}

func TestInfo_Families(t *testing.T) {
	tests := []struct {
		name   string
		info   Info
		debian bool
		apt    bool
	}{
		{"ubuntu", Info{ID: "ubuntu", APTGet: true}, true, true},
		{"debian without apt-get", Info{ID: "debian"}, true, false},
		{"mint", Info{ID: "linuxmint", IDLike: []string{"ubuntu", "debian"}, APTGet: true}, true, true},
		{"fedora", Info{ID: "fedora", APTGet: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.debian, tt.info.IsDebianFamily())
			assert.Equal(t, tt.apt, tt.info.HasAPT())
		})
	}
}

func TestInfo_Name(t *testing.T) {
	assert.Equal(t, "ubuntu 24.04", Info{OS: "linux", ID: "ubuntu", VersionID: "24.04"}.Name())
	assert.Equal(t, "arch", Info{OS: "linux", ID: "arch"}.Name())
	assert.Equal(t, "darwin", Info{OS: "darwin"}.Name())
}

func TestInfo_Arch(t *testing.T) {
	assert.Equal(t, "amd64", Info{Arch: "amd64"}.GoArch())
	assert.Equal(t, "armv6l", Info{Arch: "arm"}.GoArch())
	assert.Equal(t, "aarch64", Info{Arch: "arm64"}.RustupArch())
	assert.Equal(t, "x86_64", Info{Arch: "amd64"}.RustupArch())
}
