package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePlainTrimsOnly(t *testing.T) {
	require.Equal(t, "clean text", Normalize(DialectPlain, "  clean text  "))
	require.Equal(t, "keeps [00:00:00.000 --> 00:00:01.000] inline", Normalize(DialectPlain, "keeps [00:00:00.000 --> 00:00:01.000] inline\n"))
}

func TestNormalizeTimestamped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "dot millisecond separator",
			raw:  "[00:00:00.000 --> 00:00:03.280] hello\n[00:00:03.280 --> 00:00:05.000] world",
			want: "hello world",
		},
		{
			name: "colon millisecond separator",
			raw:  "[00:00:00:000 --> 00:00:03:280] hi",
			want: "hi",
		},
		{
			name: "blank and marker-only lines dropped",
			raw:  "\n[00:00:00.000 --> 00:00:01.000]\n  [00:00:01.000 --> 00:00:02.500]   spaced out  \r\n\n",
			want: "spaced out",
		},
		{
			name: "no space after bracket",
			raw:  "[00:00:00.000-->00:00:01.000]tight",
			want: "tight",
		},
		{
			name: "plain lines joined",
			raw:  "first line\nsecond line",
			want: "first line second line",
		},
		{
			name: "empty",
			raw:  "   \n\n",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(DialectTimestamped, tc.raw))
		})
	}
}

func TestNormalizeTimestampedIdempotent(t *testing.T) {
	for _, clean := range []string{"hello world", "already clean, with punctuation.", "a"} {
		once := Normalize(DialectTimestamped, clean)
		require.Equal(t, clean, once)
		require.Equal(t, once, Normalize(DialectTimestamped, once))
	}

	raw := "[00:00:00.000 --> 00:00:03.280] hello\n[00:00:03.280 --> 00:00:05.000] world"
	once := Normalize(DialectTimestamped, raw)
	require.Equal(t, once, Normalize(DialectTimestamped, once))
}

func TestDialectString(t *testing.T) {
	require.Equal(t, "plain", DialectPlain.String())
	require.Equal(t, "timestamped", DialectTimestamped.String())
	require.Equal(t, "unknown", Dialect(9).String())
}
