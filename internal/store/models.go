package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

// PredictionRecord is one persisted classification event. Rows are
// append-only; there is no update or delete path.
type PredictionRecord struct {
	ID                string    `json:"id"` // Using UUID for external ID
	Username          string    `json:"username"`
	ImageName         string    `json:"image_name"`
	PredictedClass    string    `json:"predicted_class"`
	ConfidencePercent float64   `json:"confidence"` // 0-100
	Timestamp         time.Time `json:"timestamp"`
}
