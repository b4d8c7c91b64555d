package constants

import "strings"

// AllowedPhotoExtensions holds the accepted odometer photo formats.
var AllowedPhotoExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPhotoExt reports whether ext (with or without a leading dot) is an
// accepted odometer photo format.
func IsPhotoExt(ext string) bool {
	_, ok := AllowedPhotoExtensions[NormalizeExt(ext)]
	return ok
}
