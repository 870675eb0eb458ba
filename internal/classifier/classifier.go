// Package classifier derives the extension key that decides where extsort moves a file.
package classifier

import "strings"

// Sentinel is the key used for files whose extension is missing or cannot
// safely name a directory.
const Sentinel = "NOEXT"

// forbiddenKeys lists extension values that must never be used as a
// directory name.
var forbiddenKeys = map[string]struct{}{
	"":   {},
	".":  {},
	"..": {},
}

// Classification represents the result of classifying a file name.
type Classification struct {
	Key       string // Destination directory name under root
	Extension string // Raw extension including the leading dot ("" if none)
	Sentinel  bool   // True if Key was replaced by the sentinel
}

// Classify computes the extension key for a file name.
// The extension is lowercased with its leading dot removed; an empty or
// forbidden result yields the Sentinel key.
func Classify(filename string) Classification {
	ext := Extension(filename)
	key := strings.ToLower(strings.Replace(ext, ".", "", 1))

	if IsForbidden(key) {
		return Classification{
			Key:       Sentinel,
			Extension: ext,
			Sentinel:  true,
		}
	}

	return Classification{
		Key:       key,
		Extension: ext,
	}
}

// Key is a convenience wrapper returning only the extension key.
func Key(filename string) string {
	return Classify(filename).Key
}

// Extension returns the extension of a base file name, from the last dot to
// the end of the name. Names whose only dot is the leading character
// (".bashrc") and the name ".." have no extension. A trailing dot yields ".".
func Extension(filename string) string {
	lastDot := strings.LastIndexByte(filename, '.')
	if lastDot <= 0 || filename == ".." {
		return ""
	}
	return filename[lastDot:]
}

// IsForbidden reports whether key is one of the values replaced by the sentinel.
func IsForbidden(key string) bool {
	_, forbidden := forbiddenKeys[key]
	return forbidden
}
