package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain name", input: "report.pdf", want: "report.pdf"},
		{name: "surrounding whitespace trimmed", input: "  notes.txt  ", want: "notes.txt"},
		{name: "directory component stripped", input: "uploads/report.pdf", want: "report.pdf"},
		{name: "windows separators stripped", input: `C:\temp\report.pdf`, want: "report.pdf"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "traversal", input: "../../etc/passwd", wantErr: true},
		{name: "embedded traversal", input: "a..b.txt", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 300) + ".txt", wantErr: true},
		{name: "invalid character", input: "what?.txt", wantErr: true},
		{name: "null byte", input: "evil\x00.txt", wantErr: true},
		{name: "dangerous extension", input: "setup.exe", wantErr: true},
		{name: "dangerous extension uppercase", input: "SETUP.EXE", wantErr: true},
		{name: "reserved name", input: "CON.txt", wantErr: true},
		{name: "reserved name lowercase", input: "nul", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, CodeInvalidArgument, CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFolderName(t *testing.T) {
	got, err := SanitizeFolderName("Family Photos")
	require.NoError(t, err)
	assert.Equal(t, "Family Photos", got)

	_, err = SanitizeFolderName("a/b")
	assert.Error(t, err)

	_, err = SanitizeFolderName(`a\b`)
	assert.Error(t, err)

	_, err = SanitizeFolderName("trailing.")
	assert.Error(t, err)
}

func TestSanitizeKeyComponent(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeKeyComponent("report.pdf"))
	assert.Equal(t, "my_file_v2_.txt", SanitizeKeyComponent("my file (v2).txt"))
	assert.Equal(t, "file", SanitizeKeyComponent("???"))
	assert.LessOrEqual(t, len(SanitizeKeyComponent(strings.Repeat("x", 500))), 128)
}
