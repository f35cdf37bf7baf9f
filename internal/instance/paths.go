// Package instance locates the per-institute data directories under ~/.campus.
package instance

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the base directory.
const EnvHome = "CAMPUS_HOME"

// BaseDir returns $CAMPUS_HOME, or ~/.campus.
func BaseDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".campus")
}

// Dir returns the institute-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "institutes", name)
}

// SocketPath returns the UDS socket path of an institute daemon.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "campusd.sock")
}

// DBPath returns the default SQLite database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "campus.db")
}

// LogDir returns the log directory for an institute.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// DaemonLogPath returns the campusd log file path.
func DaemonLogPath(name string) string {
	return filepath.Join(LogDir(name), "campusd.log")
}

// TUILogPath returns the campustui log file path.
func TUILogPath(name string) string {
	return filepath.Join(LogDir(name), "campustui.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnvFilePath returns the optional .env file read before CAMPUS_* overrides.
func EnvFilePath() string {
	return filepath.Join(BaseDir(), ".env")
}

// EnsureDir creates the institute directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
