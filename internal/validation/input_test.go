package validation

import (
	"strings"
	"testing"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		errSubstr string // substring that must appear in error when wantErr is true
	}{
		// Valid names
		{name: "simple", input: "report.pdf", wantErr: false},
		{name: "spaces", input: "my holiday photos.jpg", wantErr: false},
		{name: "no extension", input: "README", wantErr: false},
		{name: "max length", input: strings.Repeat("a", 255), wantErr: false},
		{name: "unicode", input: "ファイル.txt", wantErr: false},

		// Empty and length
		{name: "empty", input: "", wantErr: true, errSubstr: "cannot be empty"},
		{name: "blank", input: "   ", wantErr: true, errSubstr: "cannot be empty"},
		{name: "too long", input: strings.Repeat("a", 256), wantErr: true, errSubstr: "exceeds 255"},

		// Traversal and separators, regardless of length
		{name: "dotdot", input: "..", wantErr: true, errSubstr: "'..'"},
		{name: "dotdot embedded", input: "notes..txt", wantErr: true, errSubstr: "'..'"},
		{name: "dotdot traversal", input: "../../etc/passwd", wantErr: true, errSubstr: "'..'"},
		{name: "forward slash", input: "dir/file.txt", wantErr: true, errSubstr: "path separators"},
		{name: "backslash", input: `dir\file.txt`, wantErr: true, errSubstr: "path separators"},

		// Reserved punctuation and control characters
		{name: "angle bracket", input: "a<b.txt", wantErr: true, errSubstr: "reserved"},
		{name: "pipe", input: "a|b.txt", wantErr: true, errSubstr: "reserved"},
		{name: "question mark", input: "what?.txt", wantErr: true, errSubstr: "reserved"},
		{name: "asterisk", input: "glob*.txt", wantErr: true, errSubstr: "reserved"},
		{name: "colon", input: "c:file.txt", wantErr: true, errSubstr: "reserved"},
		{name: "newline", input: "line\nbreak.txt", wantErr: true, errSubstr: "control"},
		{name: "nul", input: "evil\x00.txt", wantErr: true, errSubstr: "control"},

		// Leading dot
		{name: "hidden file", input: ".bashrc", wantErr: true, errSubstr: "start with a dot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
				if tt.errSubstr != "" {
					assert.Contains(t, err.Error(), tt.errSubstr)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(""))
	assert.NoError(t, ValidateDescription("quarterly numbers, draft 3"))
	assert.NoError(t, ValidateDescription(strings.Repeat("d", 5000)))

	err := ValidateDescription(strings.Repeat("d", 5001))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 5000")

	err = ValidateDescription("binary\x00junk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUL")
}

func TestValidateSearchTerm(t *testing.T) {
	assert.NoError(t, ValidateSearchTerm(""))
	assert.NoError(t, ValidateSearchTerm("invoice 2026"))
	assert.NoError(t, ValidateSearchTerm(strings.Repeat("s", 1000)))

	err := ValidateSearchTerm(strings.Repeat("s", 1001))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 1000")

	err = ValidateSearchTerm("bad\x00term")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUL")
}
