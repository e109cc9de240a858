package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

// BackupTimeFormat is the timestamp layout of backup file suffixes
const BackupTimeFormat = "20060102_150405"

// maxBackupAttempts bounds the numeric suffixes tried for one timestamp
const maxBackupAttempts = 100

// Backup copies the file at path to path.backup.<timestamp> and returns the
// backup's path. Mode and modification time are kept. An existing backup is
// never overwritten: when the name is taken a numeric suffix is added.
func Backup(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	base := path + ".backup." + now.Format(BackupTimeFormat)
	for attempt := 0; attempt < maxBackupAttempts; attempt++ {
		target := base
		if attempt > 0 {
			target = base + "." + strconv.Itoa(attempt)
		}

		err := writeNew(target, data, info.Mode().Perm())
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}

		if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
			return "", fmt.Errorf("failed to set backup times: %w", err)
		}
		return target, nil
	}

	return "", fmt.Errorf("failed to create backup: too many backups named %s", base)
}

// writeNew writes data to a file that must not exist yet
func writeNew(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
