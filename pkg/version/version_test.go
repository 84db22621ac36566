package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.NotEmpty(t, info.GoVersion, "Go version should not be empty")
	assert.Contains(t, info.GoVersion, "go", "Go version should contain 'go'")
}

func TestInfo_String(t *testing.T) {
	info := Info{
		Version:   "0.3.0",
		GitCommit: "9f1c2d4",
		BuildTime: "2026-10-01T09:00:00Z",
		GoVersion: "go1.24.4",
	}

	result := info.String()
	expected := "Version: 0.3.0, GitCommit: 9f1c2d4, BuildTime: 2026-10-01T09:00:00Z, GoVersion: go1.24.4"
	assert.Equal(t, expected, result)
}

func TestInfo_JSONFormat(t *testing.T) {
	info := Info{
		Version:   "0.3.0",
		GitCommit: "9f1c2d4",
		BuildTime: "2026-10-01T09:00:00Z",
		GoVersion: "go1.24.4",
	}

	jsonString, err := info.JSON()
	require.NoError(t, err)

	expectedJSON := `{
  "version": "0.3.0",
  "gitCommit": "9f1c2d4",
  "buildTime": "2026-10-01T09:00:00Z",
  "goVersion": "go1.24.4"
}`

	assert.Equal(t, expectedJSON, jsonString)
}
