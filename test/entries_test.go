//go:build integration_test || all_tests

package test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/bodylog/internal/livesync"
	"github.com/2beens/bodylog/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestEntriesLifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()

	s.waitForState(ctx, func(state livesync.State) bool {
		return !state.Loading
	})

	weightID := s.addEntry(ctx, "weight", map[string]any{"date": "2025-05-01", "weight": 85})
	s.addEntry(ctx, "weight", map[string]any{"date": "2025-05-15", "weight": 84})
	exerciseID := s.addEntry(ctx, "exercise", map[string]any{
		"date":        "2025-06-14",
		"description": "Evening 3km run",
		"duration":    25,
	})
	s.addEntry(ctx, "journal", map[string]any{
		"date":    "2025-06-14",
		"title":   "Productive Day",
		"content": "Managed to stick to my diet and got a run in. Feeling good.",
	})

	state := s.waitForState(ctx, func(state livesync.State) bool {
		return len(state.Weight) == 2 && len(state.Exercise) == 1 && len(state.Journal) == 1
	})
	assert.Equal(t, 84.0, state.Weight[0].Weight)
	assert.Equal(t, 85.0, state.Weight[1].Weight)
	require.NotNil(t, state.Exercise[0].Duration)
	assert.Equal(t, 25, *state.Exercise[0].Duration)
	assert.Equal(t, "Productive Day", state.Journal[0].Title)
	assert.Nil(t, state.Error)

	resp := s.doRequest(ctx, "PUT", "/api/weight/"+weightID, map[string]any{"date": "2025-05-01", "weight": 86})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	s.waitForState(ctx, func(state livesync.State) bool {
		return len(state.Weight) == 2 && state.Weight[1].Weight == 86
	})

	resp = s.doRequest(ctx, "DELETE", "/api/exercise/"+exerciseID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	s.waitForState(ctx, func(state livesync.State) bool {
		return len(state.Exercise) == 0
	})

	resp = s.doRequest(ctx, "DELETE", "/api/exercise/"+exerciseID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.doRequest(ctx, "POST", "/api/weight", map[string]any{"date": "2025-05-01", "weight": -1})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.doRequest(ctx, "GET", "/api/weight", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listResp struct {
		Kind    string            `json:"kind"`
		Entries []json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
	assert.Equal(t, "weight", listResp.Kind)
	assert.Len(t, listResp.Entries, 2)
}

func (s *IntegrationTestSuite) TestHealthAndAuth() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()

	resp, err := s.httpClient.Get(serverEndpoint + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","redis":"ok","sync":"live","loading":false}`, string(respBytes))

	req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/api/state", nil)
	require.NoError(t, err)
	unauthorized, err := s.httpClient.Do(req)
	require.NoError(t, err)
	unauthorized.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauthorized.StatusCode)
}

func (s *IntegrationTestSuite) TestLiveStream() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()

	req, err := http.NewRequestWithContext(
		ctx,
		"GET",
		serverEndpoint+"/api/stream?"+middleware.TokenQueryParam+"="+testAPIToken,
		nil,
	)
	require.NoError(t, err)

	// no client timeout, the stream stays open
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	states := make(chan livesync.State, 16)
	go func() {
		defer close(states)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var state livesync.State
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &state); err == nil {
				states <- state
			}
		}
	}()

	first := <-states
	before := len(first.Journal)

	s.addEntry(ctx, "journal", map[string]any{
		"date":    time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC).UnixMilli(),
		"title":   "Weekend Reflections",
		"content": "Gym session was tough but rewarding. Need to focus on hydration more.",
	})

	timeout := time.After(10 * time.Second)
	for {
		select {
		case state, ok := <-states:
			require.True(t, ok, "stream closed")
			if len(state.Journal) == before+1 {
				assert.Equal(t, "Weekend Reflections", state.Journal[0].Title)
				cancel()
				for range states {
				}
				return
			}
		case <-timeout:
			t.Fatal("journal entry not streamed")
		}
	}
}

// runs last, the mutation routes stay limited for the rest of the minute
func (s *IntegrationTestSuite) TestRateLimit() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()

	limited := false
	for i := 0; i < testRateLimitPerMin+5; i++ {
		resp := s.doRequest(ctx, "POST", "/api/weight", map[string]any{"date": "2025-07-01", "weight": 80})
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	assert.True(t, limited, "expected mutations to get rate limited")

	// reads are not limited
	resp := s.doRequest(ctx, "GET", "/api/state", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
