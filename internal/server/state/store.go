// Package state holds the mock index server's in-memory data: the admin
// password, the sources table, the directories index and the indexing job
// status.
package state

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MaxLogLines bounds the job log. One line beyond it is dropped from the
// front before each append.
const MaxLogLines = 50

var (
	ErrAlreadyConfigured = errors.New("already configured")
	ErrNotConfigured     = errors.New("not configured")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrEmptyPassword     = errors.New("password is required")
	ErrInvalidSource     = errors.New("label and url are required")
)

// Source is a row of the sources table.
type Source struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// Directory is a row of the directories index.
type Directory struct {
	ID           int64  `json:"id"`
	SourceID     int64  `json:"source_id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	OriginalLink string `json:"original_link"`
	CreatedAt    string `json:"created_at"`

	created time.Time
}

// JobStatus is the indexing job's progress as served by /index/status.
type JobStatus struct {
	IsRunning        bool     `json:"is_running"`
	CurrentSource    *string  `json:"current_source"`
	CurrentPath      *string  `json:"current_path"`
	DirectoriesFound int      `json:"directories_found"`
	Logs             []string `json:"logs"`
}

// Stats is served by /stats.
type Stats struct {
	Sources     int     `json:"sources"`
	Directories int     `json:"directories"`
	LastUpdated *string `json:"last_updated"`
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	cost         int
	passwordHash []byte

	sources      []Source
	nextSourceID int64

	dirs      []Directory
	nextDirID int64

	job JobStatus

	now func() time.Time
}

// NewStore returns an empty, unconfigured store. cost is the bcrypt cost;
// values outside bcrypt's range use bcrypt.DefaultCost.
func NewStore(cost int) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		cost: cost,
		now:  func() time.Time { return time.Now().UTC() },
		job:  JobStatus{Logs: []string{}},
	}
}

// Configured reports whether an admin password exists.
func (s *Store) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwordHash != nil
}

// SetPassword stores the first admin password.
func (s *Store) SetPassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if s.Configured() {
		return ErrAlreadyConfigured
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passwordHash != nil {
		return ErrAlreadyConfigured
	}
	s.passwordHash = hash
	return nil
}

// CheckPassword verifies password against the stored hash.
func (s *Store) CheckPassword(password string) error {
	s.mu.Lock()
	hash := s.passwordHash
	s.mu.Unlock()

	if hash == nil {
		return ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Sources returns a copy of the sources in id order. The result is never
// nil, so an empty store encodes as [].
func (s *Store) Sources() []Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// AddSource inserts a source and returns it with its assigned id.
func (s *Store) AddSource(label, url string) (Source, error) {
	label = strings.TrimSpace(label)
	url = strings.TrimSpace(url)
	if label == "" || url == "" {
		return Source{}, ErrInvalidSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSourceID++
	src := Source{
		ID:        s.nextSourceID,
		Label:     label,
		URL:       url,
		CreatedAt: s.now().Format(time.RFC3339Nano),
	}
	s.sources = append(s.sources, src)
	return src, nil
}

// DeleteSource removes a source and every directory indexed from it. It
// reports whether the source existed.
func (s *Store) DeleteSource(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	kept := s.sources[:0]
	for _, src := range s.sources {
		if src.ID == id {
			found = true
			continue
		}
		kept = append(kept, src)
	}
	s.sources = kept
	s.dirs = dropSource(s.dirs, id)
	return found
}

// ReplaceDirectories swaps the indexed directories of one source. Entries
// for a source that no longer exists are discarded.
func (s *Store) ReplaceDirectories(sourceID int64, dirs []Directory) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists := false
	for _, src := range s.sources {
		if src.ID == sourceID {
			exists = true
			break
		}
	}
	s.dirs = dropSource(s.dirs, sourceID)
	if !exists {
		return 0
	}

	now := s.now()
	for _, d := range dirs {
		s.nextDirID++
		d.ID = s.nextDirID
		d.SourceID = sourceID
		d.created = now
		d.CreatedAt = now.Format(time.RFC3339Nano)
		s.dirs = append(s.dirs, d)
	}
	return len(dirs)
}

// Search returns directories whose name contains every whitespace-separated
// term, case-insensitively. A blank query matches nothing.
func (s *Store) Search(query string) []Directory {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []Directory{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Directory{}
	for _, d := range s.dirs {
		name := strings.ToLower(d.Name)
		match := true
		for _, term := range terms {
			if !strings.Contains(name, term) {
				match = false
				break
			}
		}
		if match {
			out = append(out, d)
		}
	}
	return out
}

// Stats counts sources and directories and reports the newest directory's
// creation time.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Sources: len(s.sources), Directories: len(s.dirs)}
	var latest *Directory
	for i := range s.dirs {
		if latest == nil || s.dirs[i].created.After(latest.created) {
			latest = &s.dirs[i]
		}
	}
	if latest != nil {
		v := latest.CreatedAt
		st.LastUpdated = &v
	}
	return st
}

// Job returns a copy of the job status.
func (s *Store) Job() JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.job
	out.Logs = append([]string{}, s.job.Logs...)
	return out
}

// beginJob marks the job running and resets its progress. It returns false
// when a job is already running.
func (s *Store) beginJob() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job.IsRunning {
		return false
	}
	s.job = JobStatus{IsRunning: true, Logs: []string{}}
	return true
}

func (s *Store) finishJob() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.IsRunning = false
	s.job.CurrentSource = nil
	s.job.CurrentPath = nil
}

func (s *Store) setCurrentSource(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.CurrentSource = &label
	s.appendLogLocked("Indexing source: " + label)
}

func (s *Store) progress(found int, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.DirectoriesFound = found
	s.job.CurrentPath = &path
	s.appendLogLocked("Crawling: " + path)
}

func (s *Store) setFound(found int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.DirectoriesFound = found
}

func (s *Store) appendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLogLocked(line)
}

func (s *Store) appendLogLocked(line string) {
	if len(s.job.Logs) > MaxLogLines {
		s.job.Logs = s.job.Logs[1:]
	}
	s.job.Logs = append(s.job.Logs, line)
}

func dropSource(dirs []Directory, sourceID int64) []Directory {
	kept := dirs[:0]
	for _, d := range dirs {
		if d.SourceID != sourceID {
			kept = append(kept, d)
		}
	}
	return kept
}
