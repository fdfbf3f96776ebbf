package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/fs"
)

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "inodefs")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(cfgFile, []byte("image: from-file.img\nblocks: 64\n"), 0644))
	os.Setenv("INODEFS_CONFIG_FILE", cfgFile)
	os.Setenv("INODEFS_BLOCKS", "128")
	defer os.Unsetenv("INODEFS_CONFIG_FILE")
	defer os.Unsetenv("INODEFS_BLOCKS")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file.img", c.Image)
	assert.Equal(t, uint64(128), c.Blocks, "environment overrides the file")
	assert.Equal(t, uint64(0), c.Debug)
	assert.NoError(t, c.Validate())

	c.Blocks = 1
	assert.Error(t, c.Validate())
}

func TestCommands(t *testing.T) {
	dir, err := ioutil.TempDir("", "inodefs")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	image := filepath.Join(dir, "disk.img")
	input := filepath.Join(dir, "input")
	content := []byte("hello, inodes")
	require.NoError(t, ioutil.WriteFile(input, content, 0644))

	c := defaultConfig()
	run := func(args ...string) {
		t.Helper()
		require.NoError(t, newApp(&c).Run(append([]string{"inodefs", "--image", image}, args...)))
	}
	run("format", "--blocks", "30")
	run("create")
	run("import", "--offset", "5000", "1", input)

	d, err := disk.OpenFileDisk(image)
	require.NoError(t, err)
	defer d.Close()
	fsys := fs.MkFileSys(d)
	require.NoError(t, fsys.Mount())
	sz, err := fsys.GetSize(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000+len(content)), sz)
	buf := make([]byte, len(content))
	_, err = fsys.Read(1, buf, 5000)
	require.NoError(t, err)
	assert.Equal(t, content, buf)
	require.NoError(t, fsys.Unmount())

	run("delete", "1")
	require.NoError(t, fsys.Mount())
	_, err = fsys.GetSize(1)
	assert.Error(t, err)
}
