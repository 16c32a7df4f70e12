package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"urldigest/app/task"
)

// record is the persisted result shape.
type record struct {
	Title          string   `json:"title"`
	Keywords       []string `json:"keywords"`
	ContentSummary string   `json:"content_summary"`
	Hashtags       []string `json:"hashtags"`
	FullArticle    string   `json:"full_article"`
}

// FileStore writes completed task results as JSON records into the project
// directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save persists the task's result and returns the written file path.
func (s *FileStore) Save(t task.Task) (string, error) {
	if t.Result == nil {
		return "", fmt.Errorf("task %s has no result to save", t.ID)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}

	data, err := json.MarshalIndent(record{
		Title:          t.Result.Title,
		Keywords:       t.Result.Keywords,
		ContentSummary: t.Result.Summary,
		Hashtags:       t.Result.Hashtags,
		FullArticle:    t.Result.FullText,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	path := filepath.Join(s.dir, s.filename(t))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}

	return path, nil
}

func (s *FileStore) filename(t task.Task) string {
	id := t.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.json", slugify(t.Result.Title), id)
}

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	multiDashRe  = regexp.MustCompile(`-+`)
	slugMaxChars = 50
)

// slugify turns a title into a safe filename fragment. Diacritics are
// folded away first so accented titles keep their letters.
func slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), title)
	if err != nil {
		folded = title
	}

	slug := strings.ToLower(folded)
	slug = nonAlnumRe.ReplaceAllString(slug, "-")
	slug = multiDashRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > slugMaxChars {
		slug = strings.Trim(slug[:slugMaxChars], "-")
	}
	if slug == "" {
		return "article"
	}
	return slug
}
