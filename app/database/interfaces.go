package database

import "urldigest/app/task"

type ResultRepository interface {
	SaveResult(t task.Task) error
	GetResults(limit int) ([]ResultRecord, error)
	GetResultCount() (int, error)
}
