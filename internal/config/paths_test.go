package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths()

	if paths.ConfigDir == "" {
		t.Error("ConfigDir is empty")
	}
	if paths.DataDir == "" {
		t.Error("DataDir is empty")
	}

	// All paths should be absolute
	if !filepath.IsAbs(paths.ConfigDir) {
		t.Errorf("ConfigDir should be absolute: %s", paths.ConfigDir)
	}
	if !filepath.IsAbs(paths.DataDir) {
		t.Errorf("DataDir should be absolute: %s", paths.DataDir)
	}
}

func TestDefaultPaths_XDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG test not applicable on Windows")
	}

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	paths := DefaultPaths()

	if paths.ConfigDir != filepath.Join("/custom/config", "ridebook") {
		t.Errorf("ConfigDir should respect XDG_CONFIG_HOME: %s", paths.ConfigDir)
	}
	if paths.DataDir != filepath.Join("/custom/data", "ridebook") {
		t.Errorf("DataDir should respect XDG_DATA_HOME: %s", paths.DataDir)
	}
}

func TestPaths_Files(t *testing.T) {
	paths := &Paths{ConfigDir: "/cfg/ridebook", DataDir: "/data/ridebook"}

	if got := paths.ConfigFile(); got != filepath.Join("/cfg/ridebook", "config.yaml") {
		t.Errorf("ConfigFile = %s", got)
	}
	if got := paths.DatabaseFile(); !strings.HasSuffix(got, "ridebook.db") {
		t.Errorf("DatabaseFile should end with ridebook.db: %s", got)
	}
	if got := paths.LogDir(); got != filepath.Join("/data/ridebook", "logs") {
		t.Errorf("LogDir = %s", got)
	}
}

func TestPaths_EnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{
		ConfigDir: filepath.Join(tmpDir, "config"),
		DataDir:   filepath.Join(tmpDir, "data"),
	}

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{paths.ConfigDir, paths.DataDir, paths.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("Directory %s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
