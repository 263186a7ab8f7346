package shellrc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	got := Render("go", "export PATH=\"$PATH:/usr/local/go/bin\"\n")
	want := "# >>> devbox:go >>>\nexport PATH=\"$PATH:/usr/local/go/bin\"\n# <<< devbox:go <<<\n"
	assert.Equal(t, want, got)
}

func TestUpsert_InsertIntoEmpty(t *testing.T) {
	got, changed := Upsert("", "go", "export A=1")

	assert.True(t, changed)
	assert.Equal(t, Render("go", "export A=1"), got)
}

func TestUpsert_AppendsWithSeparator(t *testing.T) {
	got, changed := Upsert("alias ll='ls -l'", "go", "export A=1")

	assert.True(t, changed)
	assert.Equal(t, "alias ll='ls -l'\n\n"+Render("go", "export A=1"), got)
}

func TestUpsert_Idempotent(t *testing.T) {
	first, _ := Upsert("alias ll='ls -l'\n", "go", "export A=1")
	second, changed := Upsert(first, "go", "export A=1")

	assert.False(t, changed)
	assert.Equal(t, first, second)
}

func TestUpsert_ReplacesBody(t *testing.T) {
	content := "before\n" + Render("go", "export A=1") + "after\n"

	got, changed := Upsert(content, "go", "export A=2")

	assert.True(t, changed)
	assert.Equal(t, "before\n"+Render("go", "export A=2")+"after\n", got)
}

func TestUpsert_EndMarkerWithoutNewline(t *testing.T) {
	content := "# >>> devbox:go >>>\nexport A=1\n# <<< devbox:go <<<"

	_, changed := Upsert(content, "go", "export A=1")
	assert.False(t, changed)
}

func TestUpsert_BlocksAreIndependent(t *testing.T) {
	content, _ := Upsert("", "go", "export A=1")
	content, _ = Upsert(content, "rust", "export B=2")
	content, changed := Upsert(content, "go", "export A=3")

	assert.True(t, changed)
	goBody, ok := Extract(content, "go")
	require.True(t, ok)
	assert.Equal(t, "export A=3", goBody)
	rustBody, ok := Extract(content, "rust")
	require.True(t, ok)
	assert.Equal(t, "export B=2", rustBody)
}

func TestUpsert_MarkerMustBeWholeLine(t *testing.T) {
	content := "echo '# >>> devbox:go >>>'\n"

	got, changed := Upsert(content, "go", "export A=1")

	assert.True(t, changed)
	assert.Equal(t, content+"\n"+Render("go", "export A=1"), got)
}

func TestRemove(t *testing.T) {
	content, _ := Upsert("line\n", "go", "export A=1")

	got, changed := Remove(content, "go")
	assert.True(t, changed)
	assert.Equal(t, "line\n", got)

	_, changed = Remove(got, "go")
	assert.False(t, changed)
}

func TestExtract_Missing(t *testing.T) {
	_, ok := Extract("nothing here", "go")
	assert.False(t, ok)
}

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".bashrc")

	changed, err := ApplyFile(path, "ai", ". ~/.config/devbox/ai.env")
	require.NoError(t, err)
	assert.True(t, changed)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	changed, err = ApplyFile(path, "ai", ". ~/.config/devbox/ai.env")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = RemoveFromFile(path, "ai")
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestApplyFile_KeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("Host *\n"), 0600))

	_, err := ApplyFile(path, "vm", "Host devbox-vm\n  Port 2222")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRemoveFromFile_Missing(t *testing.T) {
	changed, err := RemoveFromFile(filepath.Join(t.TempDir(), "nope"), "ai")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRCFiles(t *testing.T) {
	home := t.TempDir()

	assert.Equal(t, []string{filepath.Join(home, ".profile")}, RCFiles(home, "/bin/sh"))
	assert.Equal(t, []string{filepath.Join(home, ".bashrc")}, RCFiles(home, "/bin/bash"))

	require.NoError(t, os.WriteFile(filepath.Join(home, ".zshrc"), nil, 0644))
	assert.Equal(t, []string{
		filepath.Join(home, ".bashrc"),
		filepath.Join(home, ".zshrc"),
	}, RCFiles(home, "/bin/bash"))
}

func TestApplyRC(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, ".bashrc"), []byte("# bashrc\n"), 0644))

	changed, err := ApplyRC(home, "/bin/bash", "go", "export PATH=$PATH:/usr/local/go/bin")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, ".bashrc")}, changed)

	changed, err = ApplyRC(home, "/bin/bash", "go", "export PATH=$PATH:/usr/local/go/bin")
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestRemoveRC(t *testing.T) {
	home := t.TempDir()
	bashrc := filepath.Join(home, ".bashrc")
	require.NoError(t, os.WriteFile(bashrc, []byte("# bashrc\n"), 0644))

	_, err := ApplyRC(home, "/bin/bash", "mirror-go", "export GOPROXY=https://goproxy.cn,direct")
	require.NoError(t, err)

	changed, err := RemoveRC(home, "/bin/bash", "mirror-go")
	require.NoError(t, err)
	assert.Equal(t, []string{bashrc}, changed)

	data, err := os.ReadFile(bashrc)
	require.NoError(t, err)
	assert.Equal(t, "# bashrc\n", string(data))

	changed, err = RemoveRC(home, "/bin/bash", "mirror-go")
	require.NoError(t, err)
	assert.Empty(t, changed)
}
