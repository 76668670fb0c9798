package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satvision/eurosat-api/internal/classify"
	"github.com/satvision/eurosat-api/internal/config"
	"github.com/satvision/eurosat-api/internal/core"
	"github.com/satvision/eurosat-api/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	config.AppConfig.JWTSecret = "test-secret"

	db, err := store.NewSQLiteStore(":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := core.NewSessionService(db, classify.NewSimulated(), 30*time.Second)
	srv := httptest.NewServer(NewRouter(NewAPIHandler(svc)))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func loginAs(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/login", map[string]string{"username": username, "password": password})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func multipartImage(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func doPredict(t *testing.T, srv *httptest.Server, token, filename string, content []byte) *http.Response {
	t.Helper()
	body, contentType := multipartImage(t, filename, content)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/predict", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{"username": "alice", "password": "secret"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	loginAs(t, srv, "alice", "secret")
}

func TestSignupDuplicateConflicts(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{"username": "alice", "password": "secret"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/signup", map[string]string{"username": "alice", "password": "other"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Original credentials still work.
	loginAs(t, srv, "alice", "secret")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/login", map[string]string{"username": "ghost", "password": "boo"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDefaultAdminCanLogin(t *testing.T) {
	srv := newTestServer(t)

	loginAs(t, srv, "admin", "admin")
}

func TestPredictRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartImage(t, "field.png", pngBytes(t))
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/predict", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body2, contentType2 := multipartImage(t, "field.png", pngBytes(t))
	req2, err := http.NewRequest(http.MethodPost, srv.URL+"/api/predict", body2)
	require.NoError(t, err)
	req2.Header.Set("Content-Type", contentType2)
	req2.Header.Set("Authorization", "Bearer garbage")
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestPredictAndHistoryFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{"username": "alice", "password": "secret"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := loginAs(t, srv, "alice", "secret")

	predictResp := doPredict(t, srv, token, "field.png", pngBytes(t))
	defer predictResp.Body.Close()
	require.Equal(t, http.StatusOK, predictResp.StatusCode)

	var predict PredictResponse
	require.NoError(t, json.NewDecoder(predictResp.Body).Decode(&predict))
	assert.Equal(t, "field.png", predict.ImageName)
	assert.Contains(t, classify.Labels(), predict.Class)
	assert.NotEmpty(t, predict.ClassFR)
	assert.Greater(t, predict.Confidence, 0.0)
	assert.LessOrEqual(t, predict.Confidence, 100.0)
	assert.Len(t, predict.Predictions, classify.NumClasses)
	assert.Empty(t, predict.Warning)

	var sum float64
	for _, p := range predict.Predictions {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/history", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	historyResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer historyResp.Body.Close()
	require.Equal(t, http.StatusOK, historyResp.StatusCode)

	var records []store.PredictionRecord
	require.NoError(t, json.NewDecoder(historyResp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Username)
	assert.Equal(t, "field.png", records[0].ImageName)
	assert.Equal(t, predict.Class, records[0].PredictedClass)
	assert.InDelta(t, predict.Confidence, records[0].ConfidencePercent, 1e-6)
}

func TestPredictRejectsNonImage(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{"username": "alice", "password": "secret"})
	resp.Body.Close()
	token := loginAs(t, srv, "alice", "secret")

	predictResp := doPredict(t, srv, token, "notes.txt", []byte("plain text"))
	defer predictResp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, predictResp.StatusCode)

	// The failed classify left nothing behind.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/history", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	historyResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer historyResp.Body.Close()

	var records []store.PredictionRecord
	require.NoError(t, json.NewDecoder(historyResp.Body).Decode(&records))
	assert.Empty(t, records)
}

func TestHistoryScopedToCaller(t *testing.T) {
	srv := newTestServer(t)

	tokens := map[string]string{}
	for _, user := range []string{"alice", "bob"} {
		resp := postJSON(t, srv.URL+"/api/signup", map[string]string{"username": user, "password": "secret"})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		tokens[user] = loginAs(t, srv, user, "secret")

		predictResp := doPredict(t, srv, tokens[user], user+".png", pngBytes(t))
		predictResp.Body.Close()
		require.Equal(t, http.StatusOK, predictResp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/history", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokens["alice"])
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var records []store.PredictionRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "alice.png", records[0].ImageName)
}
