package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ManuelReschke/PlayerFolio/app/models"
)

// SniffLen is the number of leading bytes ValidateMedia needs.
const SniffLen = 512

var (
	ErrUnsupportedKind = errors.New("unsupported media kind")
	ErrUnsupportedType = errors.New("file type is not supported")
	ErrScriptable      = errors.New("HTML, SVG and XML content is not allowed")
)

var imageExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	// SVG is excluded: scriptable without a sanitizer
}

var documentExt = map[string]string{
	".pdf": "application/pdf",
}

var videoExt = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// allowedFor returns the extension whitelist for a media kind.
func allowedFor(kind string) (map[string]string, error) {
	switch kind {
	case models.MediaKindAvatar, models.MediaKindAchievement:
		return imageExt, nil
	case models.MediaKindCertificate:
		return merge(imageExt, documentExt), nil
	case models.MediaKindHighlight:
		return merge(imageExt, videoExt), nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func merge(sets ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// ValidateMedia checks the filename extension and the sniffed content of head
// against the whitelist of kind. Returns the content type to store.
func ValidateMedia(kind, filename string, head []byte) (string, error) {
	allowed, err := allowedFor(kind)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := allowed[ext]
	if !ok {
		return "", ErrUnsupportedType
	}

	detected := http.DetectContentType(head)
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}

	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") ||
		strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") ||
		detected == "image/svg+xml" {
		return "", ErrScriptable
	}

	if detected == expected {
		return detected, nil
	}
	// some containers are not recognised by the sniffer
	if detected == "application/octet-stream" {
		return expected, nil
	}
	return "", ErrUnsupportedType
}
