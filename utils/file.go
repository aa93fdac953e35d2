package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SaveWithTimestamp writes r into dir under name with a timestamp suffix
// and returns the file name it picked.
func SaveWithTimestamp(r io.Reader, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	originalName := filepath.Base(name)
	ext := filepath.Ext(originalName)
	baseFileName := strings.TrimSuffix(originalName, ext)
	destFileName := fmt.Sprintf("%s_%d%s", baseFileName, time.Now().UnixNano(), ext)

	destFile, err := os.Create(filepath.Join(dir, destFileName))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, r); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	return destFileName, nil
}
