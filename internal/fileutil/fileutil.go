package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Overwrite replaces path with whatever fill writes. Any existing file is
// removed first and the new one is created exclusively. On a fill or close
// failure the partial file is removed.
func Overwrite(path string, mode os.FileMode, fill func(io.Writer) error) error {
	if err := RemoveIfExists(path); err != nil {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(out)
	if err := fill(buf); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// NonEmptyFile reports whether path exists as a regular file with content.
func NonEmptyFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}
