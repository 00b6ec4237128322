package analytics

import "time"

type EventType string

const EventQuestion EventType = "question"

// QuestionEvent describes one answered (or unanswerable) question.
type QuestionEvent struct {
	Type      EventType `json:"type"`
	Question  string    `json:"question"`
	Terms     []string  `json:"terms"`
	Files     []string  `json:"files"`
	Sentences int       `json:"sentences"`
	Answered  bool      `json:"answered"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
