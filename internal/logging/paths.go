package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.rabbithole/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".rabbithole", "logs")
	}
	return filepath.Join(home, ".rabbithole", "logs")
}

// DefaultLogPath returns the default library log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "rabbithole.log")
}
