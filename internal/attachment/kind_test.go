package attachment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/webmail/internal/attachment"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		filename string
		want     attachment.Kind
	}{
		{"photo.JPG", attachment.KindImage},
		{"scan.jpeg", attachment.KindImage},
		{"report.pdf", attachment.KindPDF},
		{"letter.docx", attachment.KindDocument},
		{"budget.xlsx", attachment.KindSpreadsheet},
		{"data.csv", attachment.KindSpreadsheet},
		{"backup.tar", attachment.KindArchive},
		{"main.go", attachment.KindCode},
		{"clip.mov", attachment.KindVideo},
		{"song.flac", attachment.KindAudio},
		{"notes", attachment.KindOther},
		{"weird.xyz", attachment.KindOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, attachment.KindOf(tc.filename), tc.filename)
	}
}

func TestIconNeverEmpty(t *testing.T) {
	for _, name := range []string{"a.png", "b.pdf", "c.zip", "d.unknown", ""} {
		assert.NotEmpty(t, attachment.Icon(name), name)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", attachment.FormatSize(0))
	assert.Equal(t, "512.00 Bytes", attachment.FormatSize(512))
	assert.Equal(t, "1.00 KB", attachment.FormatSize(1024))
	assert.Equal(t, "1.50 KB", attachment.FormatSize(1536))
	assert.Equal(t, "2.00 MB", attachment.FormatSize(2*1024*1024))
	assert.Equal(t, "3.00 GB", attachment.FormatSize(3*1024*1024*1024))
}
