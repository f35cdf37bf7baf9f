package instance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirDefault(t *testing.T) {
	t.Setenv(EnvHome, "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".campus", "institutes", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestHomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvHome, base)

	if got := ConfigPath(); got != filepath.Join(base, "config.toml") {
		t.Errorf("ConfigPath() = %q", got)
	}
	if got := SocketPath("north"); got != filepath.Join(base, "institutes", "north", "campusd.sock") {
		t.Errorf("SocketPath(north) = %q", got)
	}
	if got := DaemonLogPath("north"); !strings.HasSuffix(got, filepath.Join("north", "logs", "campusd.log")) {
		t.Errorf("DaemonLogPath(north) = %q", got)
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{Dir("test"), LogDir("test")} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("%s not created: %v", d, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("%s permission = %o, want 0700", d, perm)
		}
	}
}
