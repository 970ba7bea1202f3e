// ABOUTME: Helpers for markdown files with YAML frontmatter and crash-safe writes.
// ABOUTME: Shared by the reset history store; timestamps use RFC 3339 with nanoseconds.
package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// RenderFrontmatter renders fm as YAML between --- delimiters followed by body.
func RenderFrontmatter(fm any, body string) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(frontmatterDelim + "\n")
	sb.Write(data)
	sb.WriteString(frontmatterDelim + "\n")
	sb.WriteString(body)
	return sb.String(), nil
}

// DecodeFrontmatter decodes the frontmatter of content into v and returns the body.
// Content without frontmatter is an error.
func DecodeFrontmatter(content []byte, v any) (string, error) {
	body, err := frontmatter.MustParse(bytes.NewReader(content), v)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// WriteFileAtomic creates the parent directory and replaces path in one rename.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// FormatTime renders t for frontmatter.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTime reads a frontmatter timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
