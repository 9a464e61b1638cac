package mock

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/uiverify/internal/scenario"
)

func TestTable_Match(t *testing.T) {
	table, err := NewTable([]scenario.Route{
		{Pattern: "**/api/movies/popular", Body: `[{"id": 1}]`},
		{Pattern: "**/api/movies/*", Body: `{"title": "Test Movie"}`},
		{Pattern: "**/*.jpg", ContentType: "image/jpeg"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	testCases := []struct {
		url     string
		pattern string
	}{
		{"http://localhost:8080/api/movies/popular", "**/api/movies/popular"},
		{"http://localhost:8080/api/movies/123", "**/api/movies/*"},
		{"https://image.tmdb.org/t/p/w500/mock.jpg", "**/*.jpg"},
		{"http://localhost:8080/api/movies/popular#top", "**/api/movies/popular"},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			resp, ok := table.Match(tc.url)
			require.True(t, ok)
			assert.Equal(t, tc.pattern, resp.Pattern)
		})
	}

	for _, miss := range []string{
		"http://localhost:8080/api/movies/123/credits",
		"http://localhost:8080/api/reviews/123",
		"http://localhost:8080/",
	} {
		_, ok := table.Match(miss)
		assert.False(t, ok, miss)
	}
}

func TestTable_FirstMatchWins(t *testing.T) {
	table, err := NewTable([]scenario.Route{
		{Pattern: "**/api/**", Status: 500},
		{Pattern: "**/api/auth/me", Status: 200},
	})
	require.NoError(t, err)

	resp, ok := table.Match("http://localhost:8080/api/auth/me")
	require.True(t, ok)
	assert.Equal(t, 500, resp.Status)
}

func TestResponse_Defaults(t *testing.T) {
	table, err := NewTable([]scenario.Route{
		{Pattern: "**/api/auth/me", Body: `{"username": "testuser", "id": "u1"}`, Headers: map[string]string{
			"x-request-id":  "abc",
			"content-type":  "text/plain",
			"cache-control": "no-store",
		}},
	})
	require.NoError(t, err)

	resp, ok := table.Match("http://localhost:8080/api/auth/me")
	require.True(t, ok)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)

	decoded, err := base64.StdEncoding.DecodeString(resp.Base64Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"username": "testuser", "id": "u1"}`, string(decoded))

	assert.Equal(t, [][2]string{
		{"Content-Type", "application/json"},
		{"Cache-Control", "no-store"},
		{"X-Request-Id", "abc"},
	}, resp.Headers())
}

func TestResponse_EmptyBody(t *testing.T) {
	table, err := NewTable([]scenario.Route{{Pattern: "**/*.jpg", ContentType: "image/jpeg"}})
	require.NoError(t, err)

	resp, ok := table.Match("http://localhost:8080/mock.jpg")
	require.True(t, ok)
	assert.Equal(t, "", resp.Base64Body())
	assert.Equal(t, "image/jpeg", resp.ContentType)
}

func TestTable_CDPPatterns(t *testing.T) {
	table, err := NewTable([]scenario.Route{
		{Pattern: "**/api/movies/*"},
		{Pattern: "**/api/reviews/*"},
		{Pattern: "**/api/movies/*", Status: 404},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"*/api/movies/*", "*/api/reviews/*"}, table.CDPPatterns())
}

func TestTable_CDPPatternsWidenGlobSyntax(t *testing.T) {
	table, err := NewTable([]scenario.Route{
		{Pattern: "**/*.{png,jpg}", ContentType: "image/jpeg"},
		{Pattern: "**/api/[mr]ovies/popular"},
		{Pattern: `http://localhost:8080/api/\*literal`},
		{Pattern: "**/api/r{x,y}z"},
	})
	require.NoError(t, err)

	resp, ok := table.Match("http://localhost:8080/img/poster.jpg")
	require.True(t, ok)
	assert.Equal(t, "**/*.{png,jpg}", resp.Pattern)

	patterns := table.CDPPatterns()
	assert.Equal(t, []string{"*/*.*", "*/api/*", "http://localhost:8080/api/*", "*/api/r*"}, patterns)
	for _, p := range patterns {
		assert.NotContains(t, p, "{")
		assert.NotContains(t, p, "[")
		assert.NotContains(t, p, `\`)
	}

	_, ok = table.Match("http://localhost:8080/api/real")
	assert.False(t, ok, "paused by */api/r* but left for the server")
}

func TestNewTable_InvalidPattern(t *testing.T) {
	_, err := NewTable([]scenario.Route{{Pattern: "**/[a"}})
	assert.Error(t, err)
}
