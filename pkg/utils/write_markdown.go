package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteMarkdown writes content to filePath/fileName, creating the directory
// first, and returns the written path.
func WriteMarkdown(filePath, fileName, content string) (string, error) {
	if err := os.MkdirAll(filePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", filePath, err)
	}

	target := filepath.Join(filePath, fileName)
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return target, nil
}
