package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csereviewer/exam-engine/internal/config"
	"github.com/csereviewer/exam-engine/internal/exam"
	"github.com/csereviewer/exam-engine/internal/progress"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	pools := map[exam.Type]map[string][]*exam.Question{
		exam.TypeProfessional:    {},
		exam.TypeSubProfessional: {},
	}
	for _, track := range []exam.Type{exam.TypeProfessional, exam.TypeSubProfessional} {
		categories, err := exam.Categories(track)
		require.NoError(t, err)
		for _, c := range categories {
			qs := make([]*exam.Question, 0, 30)
			for i := 0; i < 30; i++ {
				qs = append(qs, &exam.Question{
					ID:       fmt.Sprintf("%s-%s-%d", track, c, i),
					Category: c,
					Text:     fmt.Sprintf("%s question %d", c, i),
					Options: []exam.AnswerOption{
						{ID: "a", Text: "one"},
						{ID: "b", Text: "two"},
						{ID: "c", Text: "three"},
					},
					CorrectAnswer: "a",
				})
			}
			pools[track][c] = qs
		}
	}

	logger := zerolog.Nop()
	repo := exam.NewRepository(pools, logger)
	store, err := progress.Open(t.TempDir()+"/progress.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := exam.NewService(repo, exam.NewSampler(repo, logger), store, store, logger)
	sessions := exam.NewManager(svc, 30, logger)
	handlers := NewHandlers(svc, sessions, logger)

	srv := NewHTTPServer(&config.App{HTTPAddr: "127.0.0.1:0"}, handlers)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetCategories(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/exams/professional/categories")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string][]string](t, resp)
	assert.Len(t, body["categories"], 8)
	assert.Equal(t, exam.CategoryNumerical, body["categories"][0])
}

func TestGetCategoriesUnknownType(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/v1/exams/postal/categories")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTimeLimit(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/exams/professional/time-limit?count=170")
	require.NoError(t, err)
	body := decode[map[string]int](t, resp)
	assert.Equal(t, 3*3600+10*60, body["seconds"])

	resp, err = http.Get(ts.URL + "/v1/exams/professional/time-limit?count=banana")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExamLifecycle(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/exams/practice", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	started := decode[struct {
		Session exam.Session `json:"session"`
		Resumed bool         `json:"resumed"`
	}](t, resp)

	assert.False(t, started.Resumed)
	require.Len(t, started.Session.Questions, 60)

	first := started.Session.Questions[0]
	resp = postJSON(t, ts.URL+"/v1/exams/practice/answers", map[string]string{
		"questionId": first.ID,
		"optionId":   first.CorrectAnswer,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/v1/exams/practice/position", map[string]int{"index": 3})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/v1/exams/practice/progress")
	require.NoError(t, err)
	progressBody := decode[struct {
		Categories    map[string]exam.CategoryProgress `json:"categories"`
		AnsweredCount int                              `json:"answeredCount"`
	}](t, resp)
	assert.Equal(t, 1, progressBody.AnsweredCount)

	resp = postJSON(t, ts.URL+"/v1/exams/practice/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[exam.Result](t, resp)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 60, result.TotalQuestions)

	resp, err = http.Get(ts.URL + "/v1/results/latest")
	require.NoError(t, err)
	latest := decode[exam.Result](t, resp)
	assert.Equal(t, result.Score, latest.Score)

	// Submission consumed the session and its saved progress.
	resp, err = http.Get(ts.URL + "/v1/progress/practice")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnswerWithoutSession(t *testing.T) {
	ts := testServer(t)
	resp := postJSON(t, ts.URL+"/v1/exams/practice/answers", map[string]string{
		"questionId": "q", "optionId": "a",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSavedProgressEndpoints(t *testing.T) {
	ts := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/exams/subprofessional", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/v1/progress/subprofessional")
	require.NoError(t, err)
	snap := decode[exam.Snapshot](t, resp)
	assert.Equal(t, exam.TypeSubProfessional, snap.ExamType)
	assert.NotEmpty(t, snap.Questions)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/progress/subprofessional", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/progress/subprofessional")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBankCounts(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/banks/professional/counts")
	require.NoError(t, err)
	counts := decode[map[string]exam.CategoryCount](t, resp)
	assert.Equal(t, exam.CategoryCount{Total: 30, Target: 10}, counts[exam.CategoryGeneralInfo])

	resp, err = http.Get(ts.URL + "/v1/banks/practice/counts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLatestResultAbsent(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/v1/results/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
