package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/errors"
)

// binarySniffLen is how many leading bytes are checked for NUL to decide
// whether a file is binary.
const binarySniffLen = 8000

// ListDirectoryTool lists the entries of a directory.
type ListDirectoryTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *ListDirectoryTool) Name() string { return NameListDirectory }
func (t *ListDirectoryTool) Description() string {
	return "Lists files and directories. Use \".\" for the current directory. Args: path (string)."
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'path' argument")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.WrapKind(errors.KindNotFound, err, "directory '%s' does not exist", path)
		}
		return "", errors.WrapKind(errors.KindNotReadable, err, "could not list directory '%s'", path)
	}

	var lines []string
	for _, entry := range entries {
		entryHidden, err := isPathRestricted(filepath.Join(path, entry.Name()), t.fsAccess.Hidden)
		if err != nil {
			return "", err
		}
		if entryHidden {
			continue
		}
		if entry.IsDir() {
			lines = append(lines, "[DIR] "+entry.Name())
		} else {
			lines = append(lines, "[FILE] "+entry.Name())
		}
	}
	if len(lines) == 0 {
		return "(empty directory)", nil
	}
	return strings.Join(lines, "\n"), nil
}

// ReadFileTool returns a file's text, truncated beyond the policy limit.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
	maxBytes int
}

func (t *ReadFileTool) Name() string { return NameReadFile }
func (t *ReadFileTool) Description() string {
	return "Reads the content of a text file. Args: path (string)."
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'path' argument")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.WrapKind(errors.KindNotFound, err, "file '%s' does not exist", path)
		}
		return "", errors.WrapKind(errors.KindNotReadable, err, "could not stat '%s'", path)
	}
	if info.IsDir() {
		return "", errors.NewKind(errors.KindNotReadable, "'%s' is a directory, not a file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.WrapKind(errors.KindNotReadable, err, "could not open '%s'", path)
	}
	defer f.Close()

	// Read one byte past the limit to detect truncation without slurping
	// arbitrarily large files.
	data, err := io.ReadAll(io.LimitReader(f, int64(t.maxBytes)+1))
	if err != nil {
		return "", errors.WrapKind(errors.KindNotReadable, err, "failed to read file '%s'", path)
	}

	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) != -1 {
		return "", errors.NewKind(errors.KindNotReadable, "'%s' looks like a binary file", path)
	}

	if len(data) > t.maxBytes {
		return string(data[:t.maxBytes]) +
			fmt.Sprintf("\n... [truncated: file exceeds %d bytes]", t.maxBytes), nil
	}
	return string(data), nil
}

// WriteFileTool writes a file atomically, creating parent directories.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *WriteFileTool) Name() string { return NameWriteFile }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it entirely. Parent directories are created as needed. Args: path (string), content (string)."
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["path"].(string)
	content, contentOk := args["content"].(string)
	if !pathOk || path == "" || !contentOk {
		return "", errors.New("missing or invalid 'path' or 'content' arguments")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}
	readOnly, err := isPathRestricted(path, t.fsAccess.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.New("access denied: path '%s' is read-only", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.WrapKind(errors.KindWrite, err, "could not create directory '%s'", dir)
	}

	// Write to a temp file in the target directory, then rename over the
	// destination so readers never observe a half-written file.
	tmp, err := os.CreateTemp(dir, ".meowcli-write-*")
	if err != nil {
		return "", errors.WrapKind(errors.KindWrite, err, "could not create temp file in '%s'", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.WrapKind(errors.KindWrite, err, "failed to write to '%s'", path)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.WrapKind(errors.KindWrite, err, "failed to set permissions on '%s'", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapKind(errors.KindWrite, err, "failed to flush '%s'", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapKind(errors.KindWrite, err, "failed to replace '%s'", path)
	}

	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}
