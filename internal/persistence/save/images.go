package save

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"villagekeep/internal/sim/village"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// embedImage resolves a roster entry's image reference into a
// self-contained data payload. An already-embedded reference is used
// as-is; otherwise an ordered candidate list is searched (explicit
// path, then the per-category subfolder under each asset root, matched
// by reference or by entry name with common extensions). The first
// existing candidate wins; if none resolves, the result is empty and
// the save is unaffected.
func (s *Serializer) embedImage(category string, e village.RosterEntry) string {
	if strings.HasPrefix(e.Img, "data:") {
		return e.Img
	}

	var candidates []string
	if e.Img != "" {
		candidates = append(candidates, e.Img)
	}
	for _, root := range s.opts.AssetRoots {
		if e.Img != "" {
			candidates = append(candidates, filepath.Join(root, category, e.Img))
		}
		for _, ext := range imageExts {
			candidates = append(candidates, filepath.Join(root, category, e.Name+ext))
		}
	}

	for _, c := range candidates {
		b, err := os.ReadFile(c)
		if err != nil {
			continue
		}
		return "data:" + mimeForExt(filepath.Ext(c)) + ";base64," + base64.StdEncoding.EncodeToString(b)
	}
	return ""
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
