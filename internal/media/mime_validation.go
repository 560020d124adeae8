package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedImageTypes maps accepted content types to the extension stored objects get.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var allowedImageNames = []string{"JPEG", "PNG", "WebP", "GIF"}

// sniffImage detects the content type from the leading bytes and rejects
// anything that is not an accepted image.
func sniffImage(head []byte) (string, string, error) {
	if len(head) == 0 {
		return "", "", fmt.Errorf("file is empty")
	}
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if ext, ok := allowedImageTypes[m.String()]; ok {
			return m.String(), ext, nil
		}
	}
	return "", "", fmt.Errorf("%s is not allowed; upload %s images", detected.String(), humanReadableList(allowedImageNames))
}

func humanReadableList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return fmt.Sprintf("%s or %s", items[0], items[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(items[:len(items)-1], ", "), items[len(items)-1])
	}
}
