package core

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/satvision/eurosat-api/internal/auth"
	"github.com/satvision/eurosat-api/internal/classify"
	"github.com/satvision/eurosat-api/internal/store"
)

// SessionService orchestrates login, classification, persistence and the
// history query on top of the store and the classifier.
type SessionService struct {
	dbStore    *store.SQLiteStore
	classifier classify.Classifier
	timeout    time.Duration
}

func NewSessionService(db *store.SQLiteStore, classifier classify.Classifier, timeout time.Duration) *SessionService {
	return &SessionService{
		dbStore:    db,
		classifier: classifier,
		timeout:    timeout,
	}
}

// Register creates a new identity. Duplicate usernames are rejected with
// store.ErrDuplicateUser rather than overwritten.
func (s *SessionService) Register(username, password string) (*store.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	return s.dbStore.CreateUser(username, auth.HashPassword(password))
}

// Verify checks a login attempt. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *SessionService) Verify(username, password string) error {
	user, err := s.dbStore.GetUserByUsername(username)
	if err != nil {
		log.Printf("Error getting user %s: %v", username, err)
		return ErrInvalidCredentials
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

// GetUserByUsername exposes the identity lookup for the auth middleware.
func (s *SessionService) GetUserByUsername(username string) (*store.User, error) {
	return s.dbStore.GetUserByUsername(username)
}

// Classify runs the classifier under the configured timeout and, on success,
// appends a prediction record. A failed append is logged and swallowed: the
// result still reaches the caller, only its history entry is lost. The
// returned record is nil when persistence was skipped.
func (s *SessionService) Classify(ctx context.Context, username, imageName string, image io.Reader) (*classify.Result, *store.PredictionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.classifier.Classify(ctx, image)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	if err := result.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed distribution: %v", ErrClassification, err)
	}

	rec := &store.PredictionRecord{
		Username:          username,
		ImageName:         imageName,
		PredictedClass:    result.Label(),
		ConfidencePercent: result.ConfidencePercent(),
	}
	if err := s.dbStore.InsertPrediction(rec); err != nil {
		log.Printf("Warning: could not persist prediction for user %s (image %s): %v", username, imageName, err)
		return result, nil, nil
	}
	return result, rec, nil
}

// History returns the user's records newest first. Store failures degrade to
// an empty history so a listing caller never breaks on a transient outage.
func (s *SessionService) History(username string) []store.PredictionRecord {
	records, err := s.dbStore.HistoryByUsername(username)
	if err != nil {
		log.Printf("Warning: could not load history for user %s: %v", username, err)
		return []store.PredictionRecord{}
	}
	if records == nil {
		records = []store.PredictionRecord{}
	}
	return records
}
