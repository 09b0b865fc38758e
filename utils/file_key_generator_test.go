package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"people.csv", "people.csv"},
		{"My Report.XLSX", "My_Report.xlsx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\data.json`, "data.json"},
		{"a<b>c?.csv", "abc.csv"},
		{"   .csv", "file.csv"},
		{"数据 表.csv", "数据_表.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanFilename(tt.in))
		})
	}
}

func TestCleanFilenameTruncatesOnRuneBoundary(t *testing.T) {
	got := CleanFilename(strings.Repeat("é", 40) + ".csv")
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(strings.TrimSuffix(got, ".csv")), maxNameLen)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "f1/a_b.csv", ObjectKey("f1", "a b.csv"))
}
