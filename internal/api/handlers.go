package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/satvision/eurosat-api/internal/auth"
	"github.com/satvision/eurosat-api/internal/classify"
	"github.com/satvision/eurosat-api/internal/core"
	"github.com/satvision/eurosat-api/internal/store"
)

// maxUploadBytes caps the multipart image upload.
const maxUploadBytes = 10 << 20

type APIHandler struct {
	sessionService *core.SessionService
}

func NewAPIHandler(ss *core.SessionService) *APIHandler {
	return &APIHandler{sessionService: ss}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		username, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.sessionService.GetUserByUsername(username)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", username, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "username", user.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.sessionService.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			http.Error(w, "Username already registered", http.StatusConflict)
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	sess := core.NewSession(h.sessionService)
	if err := sess.Login(req.Username, req.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(sess.Username())
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type PredictResponse struct {
	ImageName   string             `json:"image_name"`
	Class       string             `json:"class"`
	ClassFR     string             `json:"class_fr"`
	Confidence  float64            `json:"confidence"` // percent, 0-100
	Predictions map[string]float64 `json:"predictions"`
	Warning     string             `json:"warning,omitempty"`
}

func (h *APIHandler) PredictHandler(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value("username").(string)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sess := core.Resume(h.sessionService, username)
	result, rec, err := sess.Classify(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, core.ErrClassification) {
			http.Error(w, "Classification failed: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Printf("Error classifying image %s for user %s: %v", header.Filename, username, err)
		http.Error(w, "Failed to classify image", http.StatusInternalServerError)
		return
	}

	predictions := make(map[string]float64, classify.NumClasses)
	for i, p := range result.Distribution {
		predictions[classify.Label(i)] = p
	}

	resp := PredictResponse{
		ImageName:   header.Filename,
		Class:       result.Label(),
		ClassFR:     classify.LabelFR(result.Index),
		Confidence:  result.ConfidencePercent(),
		Predictions: predictions,
	}
	if rec == nil {
		resp.Warning = "prediction could not be saved to history"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value("username").(string)

	sess := core.Resume(h.sessionService, username)
	records, err := sess.History()
	if err != nil {
		log.Printf("Error listing history for user %s: %v", username, err)
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
