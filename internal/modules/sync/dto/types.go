package dto

import "time"

type SaveOutput struct {
	SessionID string
	Timestamp time.Time
	Created   bool
}

type LoadOutput struct {
	SessionID string
	Timestamp time.Time
}

type SessionRow struct {
	ID        string
	Timestamp time.Time
}

type ShowOutput struct {
	SessionID       string
	Timestamp       time.Time
	CategoryCount   int
	TagCount        int
	AnnotationCount int
}
