package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "linux-iso", want: "linux-iso"},
		{name: "encoded space", in: "My%20Files", want: "My Files"},
		{name: "encoded utf8", in: "%E6%96%87%E4%BB%B6", want: "文件"},
		{name: "plus kept", in: "a+b", want: "a+b"},
		{name: "lone percent", in: "%", want: "%"},
		{name: "truncated escape", in: "50%2", want: "50%2"},
		{name: "bad hex", in: "100%zz", want: "100%zz"},
		{name: "invalid utf8", in: "%C3%28", want: "%C3%28"},
		{name: "url", in: "ftp://host/pub/My%20Dir/", want: "ftp://host/pub/My Dir/"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, SafeDecode(tt.in))
			})
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	assert.Equal(t, "", TimeAgo(nil, now))
	assert.Equal(t, "", TimeAgo(&time.Time{}, now))
	assert.Equal(t, "3 minutes ago", TimeAgo(at(3*time.Minute), now))
	assert.Equal(t, "2 hours ago", TimeAgo(at(2*time.Hour), now))
	assert.Equal(t, "now", TimeAgo(at(0), now))
}

func TestReverseLogs(t *testing.T) {
	in := []string{"one", "two", "three"}
	assert.Equal(t, []string{"three", "two", "one"}, ReverseLogs(in))
	assert.Equal(t, []string{"one", "two", "three"}, in, "input untouched")
	assert.Empty(t, ReverseLogs(nil))
}

func TestTail(t *testing.T) {
	in := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"d", "c"}, Tail(in, 2))
	assert.Equal(t, []string{"d", "c", "b", "a"}, Tail(in, 0))
	assert.Equal(t, []string{"d", "c", "b", "a"}, Tail(in, 10))
}

func TestCount(t *testing.T) {
	assert.Equal(t, "0", Count(0))
	assert.Equal(t, "1,234,567", Count(1234567))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "…", Truncate("abc", 1))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
