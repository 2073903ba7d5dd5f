package tracker_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2beens/bodylog/internal/entries"
	"github.com/2beens/bodylog/internal/livesync"
	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/telemetry/metrics"
	"github.com/2beens/bodylog/internal/tracker"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRouter(t *testing.T) (*mux.Router, *MockliveSync) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockSync := NewMockliveSync(ctrl)

	r := mux.NewRouter()
	tracker.NewHandler(mockSync).SetupRoutes(r, nil, 60, metrics.NewTestManager())
	return r, mockSync
}

func serve(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestHandler_HandleAdd_Weight(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().
		AddWeight(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, entry entries.WeightEntry) (string, error) {
			assert.True(t, day(2025, 1, 1).Equal(entry.Date))
			assert.Equal(t, 80.0, entry.Weight)
			assert.Empty(t, entry.ID)
			return "w1", nil
		})

	rr := serve(r, "POST", "/api/weight", []byte(`{"date":"2025-01-01","weight":80,"id":"ignored"}`))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp tracker.AddEntryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "w1", resp.ID)
}

func TestHandler_HandleAdd_ExerciseAndJournal(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().
		AddExercise(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, entry entries.ExerciseEntry) (string, error) {
			assert.Equal(t, "Evening 3km run", entry.Description)
			require.NotNil(t, entry.Duration)
			assert.Equal(t, 25, *entry.Duration)
			return "e1", nil
		})
	mockSync.EXPECT().
		AddJournal(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, entry entries.JournalEntry) (string, error) {
			assert.Equal(t, "Productive Day", entry.Title)
			assert.Equal(t, "Had a great workout.", entry.Content)
			// epoch millis are accepted as a date
			assert.True(t, day(2025, 6, 10).Equal(entry.Date))
			return "j1", nil
		})

	rr := serve(r, "POST", "/api/exercise", []byte(`{"date":"2025-06-01T18:30:00Z","description":" Evening 3km run ","duration":25}`))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"e1"}`, rr.Body.String())

	body := fmt.Sprintf(`{"date":%d,"title":"Productive Day","content":"Had a great workout."}`, day(2025, 6, 10).UnixMilli())
	rr = serve(r, "POST", "/api/journal", []byte(body))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"j1"}`, rr.Body.String())
}

func TestHandler_HandleAdd_Invalid(t *testing.T) {
	r, _ := newTestRouter(t)

	testCases := []struct {
		name   string
		target string
		body   string
	}{
		{name: "NotJson", target: "/api/weight", body: `weight=80`},
		{name: "MissingDate", target: "/api/weight", body: `{"weight":80}`},
		{name: "BadDate", target: "/api/weight", body: `{"date":"yesterday","weight":80}`},
		{name: "ZeroWeight", target: "/api/weight", body: `{"date":"2025-01-01","weight":0}`},
		{name: "NegativeWeight", target: "/api/weight", body: `{"date":"2025-01-01","weight":-3}`},
		{name: "BlankDescription", target: "/api/exercise", body: `{"date":"2025-01-01","description":"   "}`},
		{name: "NegativeDuration", target: "/api/exercise", body: `{"date":"2025-01-01","description":"run","duration":-5}`},
		{name: "BlankContent", target: "/api/journal", body: `{"date":"2025-01-01","title":"t","content":" "}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(r, "POST", tc.target, []byte(tc.body))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), entries.ErrInvalidEntry.Error())
		})
	}
}

func TestHandler_HandleAdd_PersistenceError(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().
		AddWeight(gomock.Any(), gomock.Any()).
		Return("", &entries.PersistenceError{Op: entries.OpCreate, Kind: entries.KindWeight, Err: errors.New("quota")})

	rr := serve(r, "POST", "/api/weight", []byte(`{"date":"2025-01-01","weight":80}`))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to save weight entry"}`, rr.Body.String())
}

func TestHandler_UnknownKind(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := serve(r, "POST", "/api/sleep", []byte(`{"date":"2025-01-01"}`))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(r, "GET", "/api/sleep", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_HandleUpdate(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, entry entries.Entry) error {
			weight, ok := entry.(entries.WeightEntry)
			require.True(t, ok)
			assert.Equal(t, "w1", weight.ID)
			assert.Equal(t, 79.0, weight.Weight)
			return nil
		})

	rr := serve(r, "PUT", "/api/weight/w1", []byte(`{"date":"2025-01-01","weight":79}`))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandler_HandleUpdate_Errors(t *testing.T) {
	r, mockSync := newTestRouter(t)

	rr := serve(r, "PUT", "/api/exercise/e1", []byte(`{"date":"2025-01-01","description":""}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	notFound := &entries.PersistenceError{
		Op:   entries.OpUpdate,
		Kind: entries.KindExercise,
		ID:   "gone",
		Err:  fmt.Errorf("update exerciseEntries/gone: %w", store.ErrNotFound),
	}
	mockSync.EXPECT().Update(gomock.Any(), gomock.Any()).Return(notFound)
	rr = serve(r, "PUT", "/api/exercise/gone", []byte(`{"date":"2025-01-01","description":"swim"}`))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mockSync.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errors.New("deadline exceeded"))
	rr = serve(r, "PUT", "/api/exercise/e1", []byte(`{"date":"2025-01-01","description":"swim"}`))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to update exercise entry"}`, rr.Body.String())
}

func TestHandler_HandleDelete(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().Delete(gomock.Any(), entries.KindJournal, "j1").Return(nil)
	rr := serve(r, "DELETE", "/api/journal/j1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	mockSync.EXPECT().Delete(gomock.Any(), entries.KindJournal, "gone").Return(
		fmt.Errorf("remove: %w", store.ErrNotFound),
	)
	rr = serve(r, "DELETE", "/api/journal/gone", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mockSync.EXPECT().Delete(gomock.Any(), entries.KindWeight, "w1").Return(errors.New("unavailable"))
	rr = serve(r, "DELETE", "/api/weight/w1", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to delete weight entry"}`, rr.Body.String())
}

func TestHandler_HandleState(t *testing.T) {
	r, mockSync := newTestRouter(t)

	duration := 25
	mockSync.EXPECT().State().Return(livesync.State{
		Weight:   []entries.WeightEntry{{ID: "w2", Date: day(2025, 1, 5), Weight: 78}, {ID: "w1", Date: day(2025, 1, 1), Weight: 80}},
		Exercise: []entries.ExerciseEntry{{ID: "e1", Date: day(2025, 6, 1), Description: "run", Duration: &duration}},
		Journal:  []entries.JournalEntry{},
		Phases:   map[entries.Kind]livesync.Phase{entries.KindWeight: livesync.PhaseLive},
	})

	rr := serve(r, "GET", "/api/state", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var state livesync.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Len(t, state.Weight, 2)
	assert.Equal(t, "w2", state.Weight[0].ID)
	assert.Equal(t, 80.0, state.Weight[1].Weight)
	require.Len(t, state.Exercise, 1)
	assert.Equal(t, 25, *state.Exercise[0].Duration)
	assert.Empty(t, state.Journal)
	assert.Nil(t, state.Error)
	assert.Equal(t, livesync.PhaseLive, state.Phases[entries.KindWeight])
}

func TestHandler_HandleState_Fatal(t *testing.T) {
	r, mockSync := newTestRouter(t)

	msg := livesync.MsgLoadFailed
	mockSync.EXPECT().State().Return(livesync.State{
		Weight:   []entries.WeightEntry{},
		Exercise: []entries.ExerciseEntry{},
		Journal:  []entries.JournalEntry{},
		Error:    &msg,
		Fatal:    true,
	})

	rr := serve(r, "GET", "/api/state", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"Failed to load data"`)
	assert.Contains(t, rr.Body.String(), `"fatal":true`)
}

func TestHandler_HandleList(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().State().Return(livesync.State{
		Journal: []entries.JournalEntry{
			{ID: "j2", Date: day(2025, 6, 14), Title: "Weekend Reflections", Content: "rest"},
			{ID: "j1", Date: day(2025, 6, 10), Content: "workout"},
		},
		Loading: true,
	})

	rr := serve(r, "GET", "/api/journal", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Kind    string                 `json:"kind"`
		Entries []entries.JournalEntry `json:"entries"`
		Loading bool                   `json:"loading"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "journal", resp.Kind)
	assert.True(t, resp.Loading)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "j2", resp.Entries[0].ID)
	assert.Equal(t, "Weekend Reflections", resp.Entries[0].Title)
}

func TestHandler_HandleRetry(t *testing.T) {
	r, mockSync := newTestRouter(t)

	mockSync.EXPECT().Retry(gomock.Any()).Return(livesync.ErrNotFailed)
	rr := serve(r, "POST", "/api/sync/retry", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	msg := livesync.MsgLoadFailed
	mockSync.EXPECT().Retry(gomock.Any()).Return(errors.New("still unavailable"))
	mockSync.EXPECT().State().Return(livesync.State{Error: &msg, Fatal: true})
	rr = serve(r, "POST", "/api/sync/retry", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	mockSync.EXPECT().Retry(gomock.Any()).Return(nil)
	mockSync.EXPECT().State().Return(livesync.State{Loading: true})
	rr = serve(r, "POST", "/api/sync/retry", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"loading":true`)
}

func TestHandler_Options(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := serve(r, "OPTIONS", "/api/weight", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "POST, OPTIONS", rr.Header().Get("Allow"))

	rr = serve(r, "OPTIONS", "/api/weight/w1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PUT, DELETE, OPTIONS", rr.Header().Get("Allow"))
}
