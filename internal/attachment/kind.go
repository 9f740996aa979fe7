// Package attachment classifies attachment filenames into display
// categories and formats attachment metadata for rendering.
package attachment

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Kind is a coarse attachment category used to pick a list icon.
type Kind string

const (
	KindImage       Kind = "image"
	KindPDF         Kind = "pdf"
	KindDocument    Kind = "document"
	KindSpreadsheet Kind = "spreadsheet"
	KindArchive     Kind = "archive"
	KindCode        Kind = "code"
	KindVideo       Kind = "video"
	KindAudio       Kind = "audio"
	KindOther       Kind = "other"
)

var kindByExt = map[string]Kind{
	".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage, ".gif": KindImage, ".webp": KindImage,

	".pdf": KindPDF,

	".doc": KindDocument, ".docx": KindDocument, ".odt": KindDocument, ".rtf": KindDocument,

	".xls": KindSpreadsheet, ".xlsx": KindSpreadsheet, ".ods": KindSpreadsheet, ".csv": KindSpreadsheet,

	".zip": KindArchive, ".rar": KindArchive, ".7z": KindArchive, ".tar": KindArchive, ".gz": KindArchive,

	".js": KindCode, ".jsx": KindCode, ".ts": KindCode, ".tsx": KindCode, ".html": KindCode,
	".css": KindCode, ".json": KindCode, ".xml": KindCode, ".py": KindCode, ".java": KindCode,
	".cpp": KindCode, ".c": KindCode, ".php": KindCode, ".rb": KindCode, ".go": KindCode,

	".mp4": KindVideo, ".mov": KindVideo, ".avi": KindVideo, ".mkv": KindVideo, ".webm": KindVideo,

	".mp3": KindAudio, ".wav": KindAudio, ".ogg": KindAudio, ".flac": KindAudio, ".m4a": KindAudio,
}

// KindOf classifies a filename by its extension.
func KindOf(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	if kind, ok := kindByExt[ext]; ok {
		return kind
	}
	return KindOther
}

// IsImage reports whether the filename is a displayable image.
func IsImage(filename string) bool { return KindOf(filename) == KindImage }

// IsVideo reports whether the filename is a video.
func IsVideo(filename string) bool { return KindOf(filename) == KindVideo }

var icons = map[Kind]string{
	KindImage:       "🖼",
	KindPDF:         "📕",
	KindDocument:    "📄",
	KindSpreadsheet: "📊",
	KindArchive:     "🗜",
	KindCode:        "⌨",
	KindVideo:       "🎞",
	KindAudio:       "🎵",
	KindOther:       "📎",
}

// Icon returns the list icon for a filename.
func Icon(filename string) string {
	return icons[KindOf(filename)]
}

// FormatSize renders a byte count with a binary unit, two decimals.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	return fmt.Sprintf("%.2f %s", float64(bytes)/math.Pow(1024, float64(i)), units[i])
}
