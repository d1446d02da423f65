package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "Version:")
	assert.Contains(t, info.String(), "Go Version:")
}

func TestBuildInfoString(t *testing.T) {
	tests := []struct {
		name     string
		info     BuildInfo
		contains []string
		excludes []string
	}{
		{
			name: "release build",
			info: BuildInfo{
				Version:   "v1.0.0",
				BuildDate: "2026-01-01T00:00:00Z",
				GitCommit: "abc123def456",
				GoVersion: "go1.24.4",
			},
			contains: []string{"Version: v1.0.0\n", "Build Date: 2026-01-01T00:00:00Z", "Git Commit: abc123d\n", "Go Version: go1.24.4"},
			excludes: []string{"dirty"},
		},
		{
			name: "dirty build",
			info: BuildInfo{
				Version:   "v1.0.0",
				BuildDate: "unknown",
				GitCommit: "abc123-dirty",
				Dirty:     true,
			},
			contains: []string{"Version: v1.0.0 (dirty)", "Git Commit: abc123\n"},
			excludes: []string{"Build Date"},
		},
		{
			name:     "dev build",
			info:     BuildInfo{Version: "dev", BuildDate: "unknown", GitCommit: "unknown"},
			contains: []string{"Version: dev"},
			excludes: []string{"Git Commit", "Build Date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.info.String()
			for _, want := range tt.contains {
				assert.Contains(t, str, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, str, unwanted)
			}
		})
	}
}
