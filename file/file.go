/*
File    : miniscript-go/file/file.go
*/

// Package file handles loading MiniScript source from disk for the CLI:
// reading script text and deriving the error-context name shown in
// diagnostics.
package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
)

// ScriptExtension is the conventional MiniScript source suffix.
const ScriptExtension = ".ms"

// ReadSource reads a script file and returns its text.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Annotatef(err, "reading script %q", path)
	}
	return string(data), nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ErrorContext derives the name used in error messages from a script
// path: the base name, without the .ms suffix.
func ErrorContext(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ScriptExtension)
}

// ResolveScript returns the path to run: the path as given if it exists,
// else the path with the .ms extension appended.
func ResolveScript(path string) (string, error) {
	if Exists(path) {
		return path, nil
	}
	withExt := path + ScriptExtension
	if Exists(withExt) {
		return withExt, nil
	}
	return "", errors.NotFoundf("script %q", path)
}
