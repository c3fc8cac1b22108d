package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Bootstrap and backup helpers for the user configuration file. Install
// and save operations snapshot the existing file first, so a bad write
// never destroys the only copy.

const (
	// MaxBackups bounds how many config snapshots are kept on disk.
	MaxBackups = 3

	backupSuffix    = ".bak"
	backupTimestamp = "20060102-150405"
)

// InstallUserConfig writes raw YAML content as the user configuration,
// snapshotting any existing file first. It returns the path written.
func InstallUserConfig(content []byte) (string, error) {
	path := GetUserConfigPath()
	if _, err := BackupUserConfig(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write user config: %w", err)
	}
	return path, nil
}

// SaveUserConfig serializes cfg to the user configuration path,
// snapshotting any existing file first. It returns the path written.
func SaveUserConfig(cfg *Config) (string, error) {
	path := GetUserConfigPath()
	if _, err := BackupUserConfig(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := cfg.WriteYAML(path); err != nil {
		return "", err
	}
	return path, nil
}

// BackupUserConfig snapshots the current user config file. It returns the
// snapshot path, or an empty string when there is no config to back up.
func BackupUserConfig() (string, error) {
	path := GetUserConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read user config: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", path, backupSuffix, time.Now().Format(backupTimestamp))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config backup: %w", err)
	}

	// Pruning is best effort; the snapshot itself already succeeded.
	_ = pruneBackups()

	return backupPath, nil
}

// ListUserConfigBackups returns the snapshot files for the user config,
// newest first.
func ListUserConfigBackups() ([]string, error) {
	path := GetUserConfigPath()
	dir := filepath.Dir(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	prefix := filepath.Base(path) + backupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		infoI, errI := os.Stat(backups[i])
		infoJ, errJ := os.Stat(backups[j])
		if errI != nil || errJ != nil {
			return false
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return backups, nil
}

// pruneBackups removes snapshots beyond MaxBackups, keeping the newest.
func pruneBackups() error {
	backups, err := ListUserConfigBackups()
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, old := range backups[MaxBackups:] {
		_ = os.Remove(old)
	}
	return nil
}

// RestoreUserConfig replaces the user config with the given snapshot.
// The current config, if any, is snapshotted before it is overwritten.
func RestoreUserConfig(backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if _, err := InstallUserConfig(data); err != nil {
		return fmt.Errorf("failed to restore user config: %w", err)
	}
	return nil
}
