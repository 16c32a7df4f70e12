package database

import "time"

// ResultRecord is an archived analysis result.
type ResultRecord struct {
	ID             string
	TaskID         string
	URL            string
	Title          string
	Keywords       []string
	ContentSummary string
	Hashtags       []string
	FullArticle    string
	SavePath       string
	CompletedAt    time.Time
	CreatedAt      time.Time
}
