package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 255

var (
	invalidNameChars    = []string{"<", ">", ":", "\"", "|", "?", "*", "\x00"}
	dangerousExtensions = map[string]bool{
		".exe": true, ".bat": true, ".cmd": true, ".com": true,
		".scr": true, ".msi": true, ".vbs": true, ".ps1": true,
	}
	reservedNames = []string{
		"CON", "PRN", "AUX", "NUL",
		"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
		"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
	}
	keyUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// SanitizeFileName validates and cleans a file name before any path or
// storage key is constructed from it. Path-traversal sequences, disallowed
// characters, dangerous extensions, and over-long names are rejected.
func SanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", InvalidArgumentf("file name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return "", InvalidArgumentf("file name contains invalid UTF-8")
	}
	// Strip any directory component the client smuggled in.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return "", InvalidArgumentf("file name contains path traversal")
	}
	if len(name) > maxNameLength {
		return "", InvalidArgumentf("file name too long (max %d characters)", maxNameLength)
	}
	for _, char := range invalidNameChars {
		if strings.Contains(name, char) {
			return "", InvalidArgumentf("file name contains invalid character: %q", char)
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if dangerousExtensions[ext] {
		return "", InvalidArgumentf("file extension %s is not allowed", ext)
	}
	if isReservedName(name) {
		return "", InvalidArgumentf("file name uses a reserved name")
	}
	return name, nil
}

// SanitizeFolderName applies the file rules plus the folder-only ones:
// no slashes at all and no trailing dot.
func SanitizeFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.ContainsAny(name, "/\\") {
		return "", InvalidArgumentf("folder name cannot contain slashes")
	}
	name, err := SanitizeFileName(name)
	if err != nil {
		return "", InvalidArgumentf("invalid folder name: %v", err)
	}
	if strings.HasSuffix(name, ".") {
		return "", InvalidArgumentf("folder name cannot end with a dot")
	}
	return name, nil
}

// SanitizeKeyComponent reduces a name to the safe character set used inside
// storage object keys. Lossy on purpose; display names keep their original
// form in the document.
func SanitizeKeyComponent(name string) string {
	name = keyUnsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	if len(name) > 128 {
		name = name[:128]
	}
	return name
}

func isReservedName(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, reserved := range reservedNames {
		if strings.EqualFold(base, reserved) {
			return true
		}
	}
	return false
}
