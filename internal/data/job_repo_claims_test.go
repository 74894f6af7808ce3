package data

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{
			name: "short message unchanged",
			msg:  "read page count: exit status 1",
			want: "read page count: exit status 1",
		},
		{
			name: "exactly at limit unchanged",
			msg:  strings.Repeat("a", maxStoredErrorLen),
			want: strings.Repeat("a", maxStoredErrorLen),
		},
		{
			name: "long ascii cut at limit",
			msg:  strings.Repeat("a", 2000),
			want: strings.Repeat("a", maxStoredErrorLen),
		},
		{
			name: "multibyte rune straddling limit dropped whole",
			msg:  strings.Repeat("a", maxStoredErrorLen-1) + "é",
			want: strings.Repeat("a", maxStoredErrorLen-1),
		},
		{
			name: "multibyte heavy message stays valid",
			msg:  strings.Repeat("é", 400),
			want: strings.Repeat("é", maxStoredErrorLen/2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateError(tt.msg)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), maxStoredErrorLen)
			assert.True(t, utf8.ValidString(got), "truncated error must stay valid UTF-8")
		})
	}
}
