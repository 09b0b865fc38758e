package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxNameLen = 50

var (
	dangerousChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	unsafeChars    = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
	repeatedSeps   = regexp.MustCompile(`[_\-.]{2,}`)
)

// ObjectKey is the storage key of a file's raw bytes: "<fileId>/<clean name>".
func ObjectKey(fileID, filename string) string {
	return fileID + "/" + CleanFilename(filename)
}

// CleanFilename strips path components and unsafe characters, lower-cases the
// extension and truncates the base name without splitting a UTF-8 sequence.
func CleanFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := sanitizeFilename(strings.TrimSuffix(filename, filepath.Ext(filename)))
	ext = sanitizeFilename(ext)
	if ext != "" {
		ext = "." + strings.TrimPrefix(ext, ".")
	}

	if len(base) > maxNameLen {
		base = truncateUTF8(base, maxNameLen)
	}
	if base == "" || base == "_" {
		base = "file"
	}
	return base + ext
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = dangerousChars.ReplaceAllString(name, "")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = repeatedSeps.ReplaceAllString(name, "_")
	return strings.Trim(name, "_-.")
}

func truncateUTF8(s string, n int) string {
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
