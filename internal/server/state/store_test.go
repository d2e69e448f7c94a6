package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore() *Store {
	return NewStore(bcrypt.MinCost)
}

func TestStore_Password(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.Configured())
	assert.ErrorIs(t, s.CheckPassword("abc123"), ErrNotConfigured)

	assert.ErrorIs(t, s.SetPassword(""), ErrEmptyPassword)
	require.NoError(t, s.SetPassword("abc123"))
	assert.True(t, s.Configured())
	assert.ErrorIs(t, s.SetPassword("other"), ErrAlreadyConfigured)

	assert.NoError(t, s.CheckPassword("abc123"))
	assert.ErrorIs(t, s.CheckPassword("wrong"), ErrInvalidPassword)
	assert.NotEqual(t, []byte("abc123"), s.passwordHash)
}

func TestStore_Sources(t *testing.T) {
	s := newTestStore()
	require.NotNil(t, s.Sources())
	assert.Empty(t, s.Sources())

	a, err := s.AddSource(" A ", "http://a/")
	require.NoError(t, err)
	b, err := s.AddSource("B", "http://b/")
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, "A", a.Label)
	assert.Equal(t, int64(2), b.ID)
	assert.NotEmpty(t, a.CreatedAt)

	_, err = s.AddSource("", "http://c/")
	assert.ErrorIs(t, err, ErrInvalidSource)

	assert.Equal(t, []Source{a, b}, s.Sources())

	assert.True(t, s.DeleteSource(a.ID))
	assert.False(t, s.DeleteSource(a.ID))
	assert.Equal(t, []Source{b}, s.Sources())

	listed := s.Sources()
	listed[0].Label = "mutated"
	assert.Equal(t, "B", s.Sources()[0].Label, "callers get a copy")

	assert.True(t, s.DeleteSource(b.ID))
	assert.NotNil(t, s.Sources(), "empty after delete is still non-nil")

	c, err := s.AddSource("C", "http://c/")
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID, "ids are never reused")
}

func TestStore_DirectoriesFollowSources(t *testing.T) {
	s := newTestStore()
	src, err := s.AddSource("A", "http://a/")
	require.NoError(t, err)

	n := s.ReplaceDirectories(src.ID, []Directory{{Name: "linux"}, {Name: "docs"}})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Stats().Directories)

	s.ReplaceDirectories(src.ID, []Directory{{Name: "linux"}})
	assert.Equal(t, 1, s.Stats().Directories, "reindex replaces, never duplicates")

	assert.Equal(t, 0, s.ReplaceDirectories(99, []Directory{{Name: "ghost"}}))

	s.DeleteSource(src.ID)
	assert.Equal(t, 0, s.Stats().Directories)
}

func TestStore_Search(t *testing.T) {
	s := newTestStore()
	src, err := s.AddSource("A", "http://a/")
	require.NoError(t, err)
	s.ReplaceDirectories(src.ID, []Directory{
		{Name: "Linux-ISO"},
		{Name: "linux-docs"},
		{Name: "windows-iso"},
	})

	names := func(dirs []Directory) []string {
		out := []string{}
		for _, d := range dirs {
			out = append(out, d.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Linux-ISO", "linux-docs"}, names(s.Search("linux")))
	assert.Equal(t, []string{"Linux-ISO"}, names(s.Search("iso LINUX")))
	assert.Empty(t, s.Search("   "))
	assert.NotNil(t, s.Search(""))
	assert.Empty(t, s.Search("mac"))
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	st := s.Stats()
	assert.Equal(t, 0, st.Sources)
	assert.Nil(t, st.LastUpdated)

	src, err := s.AddSource("A", "http://a/")
	require.NoError(t, err)
	s.ReplaceDirectories(src.ID, []Directory{{Name: "x"}})

	clock = clock.Add(time.Hour)
	other, err := s.AddSource("B", "http://b/")
	require.NoError(t, err)
	s.ReplaceDirectories(other.ID, []Directory{{Name: "y"}})

	st = s.Stats()
	assert.Equal(t, 2, st.Sources)
	assert.Equal(t, 2, st.Directories)
	require.NotNil(t, st.LastUpdated)
	assert.Equal(t, "2024-01-01T01:00:00Z", *st.LastUpdated)
}

func TestStore_JobLogIsBounded(t *testing.T) {
	s := newTestStore()
	require.True(t, s.beginJob())
	assert.False(t, s.beginJob())

	for i := 0; i < 200; i++ {
		s.appendLog(fmt.Sprintf("line %d", i))
	}
	job := s.Job()
	assert.Len(t, job.Logs, MaxLogLines+1)
	assert.Equal(t, "line 199", job.Logs[len(job.Logs)-1])

	label := "A"
	s.setCurrentSource(label)
	s.finishJob()
	job = s.Job()
	assert.False(t, job.IsRunning)
	assert.Nil(t, job.CurrentSource)
	assert.Nil(t, job.CurrentPath)

	require.True(t, s.beginJob())
	assert.Empty(t, s.Job().Logs, "a new run resets the log")
}
