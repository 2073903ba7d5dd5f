//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/2beens/bodylog/internal/livesync"
	"github.com/2beens/bodylog/internal/middleware"
	"github.com/2beens/bodylog/internal/tracker"

	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path string, body any) *http.Response {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(middleware.TokenHeader, testAPIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (s *IntegrationTestSuite) addEntry(ctx context.Context, kind string, body any) string {
	t := s.T()

	resp := s.doRequest(ctx, "POST", "/api/"+kind, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var addResp tracker.AddEntryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&addResp))
	require.NotEmpty(t, addResp.ID)

	return addResp.ID
}

func (s *IntegrationTestSuite) getState(ctx context.Context) livesync.State {
	t := s.T()

	resp := s.doRequest(ctx, "GET", "/api/state", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state livesync.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func (s *IntegrationTestSuite) waitForState(ctx context.Context, cond func(livesync.State) bool) livesync.State {
	var state livesync.State
	require.Eventually(s.T(), func() bool {
		state = s.getState(ctx)
		return cond(state)
	}, 10*time.Second, 50*time.Millisecond)
	return state
}
