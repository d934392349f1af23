package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "collapses whitespace",
			input: "Amazon   S3\tstores\n\nobjects.",
			want:  "Amazon S3 stores objects.",
		},
		{
			name:  "splits merged words",
			input: "the bucketPolicy controls access",
			want:  "the bucket Policy controls access",
		},
		{
			name:  "splits run-on sentences",
			input: "Enable versioning.Then configure lifecycle rules!Done?Yes",
			want:  "Enable versioning. Then configure lifecycle rules! Done? Yes",
		},
		{
			name:  "drops standalone page numbers",
			input: "end of section\n42\nnext section",
			want:  "end of section next section",
		},
		{
			name:  "keeps numbers inside sentences",
			input: "There are 42 regions",
			want:  "There are 42 regions",
		},
		{
			name:  "drops copyright lines",
			input: "Body text\n© 2024 Example Corp. All rights reserved.\nCopyright notice here\nMore body",
			want:  "Body text More body",
		},
		{
			name:  "drops confidential lines case-insensitively",
			input: "Keep this\nCONFIDENTIAL - internal use only\nStrictly Confidential\nand this",
			want:  "Keep this and this",
		},
		{
			name:  "trims",
			input: "  \n padded \n ",
			want:  "padded",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}
