package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"urldigest/app/task"
)

var _ ResultRepository = (*SQLResultRepository)(nil)

// SQLResultRepository archives completed analysis results in SQLite.
type SQLResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *SQLResultRepository {
	return &SQLResultRepository{db: db}
}

// SaveResult upserts the task's result keyed by task ID, so a restarted
// task that completes again replaces its previous archive row.
func (r *SQLResultRepository) SaveResult(t task.Task) error {
	if t.Result == nil {
		return fmt.Errorf("task %s has no result to archive", t.ID)
	}

	keywords, err := json.Marshal(t.Result.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	hashtags, err := json.Marshal(t.Result.Hashtags)
	if err != nil {
		return fmt.Errorf("failed to marshal hashtags: %w", err)
	}

	completedAt := time.Now().UTC()
	if t.FinishedAt != nil {
		completedAt = *t.FinishedAt
	}

	_, err = r.db.Exec(`
		INSERT INTO results (id, task_id, url, title, keywords, content_summary, hashtags, full_article, save_path, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			keywords = excluded.keywords,
			content_summary = excluded.content_summary,
			hashtags = excluded.hashtags,
			full_article = excluded.full_article,
			save_path = excluded.save_path,
			completed_at = excluded.completed_at
	`, uuid.New().String(), t.ID, t.URL, t.Result.Title, string(keywords),
		t.Result.Summary, string(hashtags), t.Result.FullText, t.SavePath, completedAt)

	if err != nil {
		return fmt.Errorf("failed to archive result: %w", err)
	}

	return nil
}

// GetResults returns the most recently completed results.
func (r *SQLResultRepository) GetResults(limit int) ([]ResultRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, task_id, url, title, keywords, content_summary, hashtags, full_article, save_path, completed_at, created_at
		FROM results
		ORDER BY completed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		record, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return records, nil
}

// GetResultCount returns the total number of archived results.
func (r *SQLResultRepository) GetResultCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get result count: %w", err)
	}
	return count, nil
}

func scanResult(rows *sql.Rows) (ResultRecord, error) {
	var record ResultRecord
	var keywords, hashtags string

	err := rows.Scan(
		&record.ID, &record.TaskID, &record.URL, &record.Title, &keywords,
		&record.ContentSummary, &hashtags, &record.FullArticle, &record.SavePath,
		&record.CompletedAt, &record.CreatedAt,
	)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("failed to scan result row: %w", err)
	}

	if err := json.Unmarshal([]byte(keywords), &record.Keywords); err != nil {
		return ResultRecord{}, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(hashtags), &record.Hashtags); err != nil {
		return ResultRecord{}, fmt.Errorf("failed to unmarshal hashtags: %w", err)
	}

	return record, nil
}
