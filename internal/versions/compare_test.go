package versions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewerRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		current   string
		expected  bool
	}{
		{name: "newer major version", candidate: "2.0.0", current: "1.0.0", expected: true},
		{name: "newer minor version", candidate: "1.2.0", current: "1.1.0", expected: true},
		{name: "newer patch version", candidate: "1.0.2", current: "1.0.1", expected: true},
		{name: "older major version", candidate: "1.0.0", current: "2.0.0", expected: false},
		{name: "older patch version", candidate: "1.0.1", current: "1.0.2", expected: false},
		{name: "equal versions", candidate: "1.0.0", current: "1.0.0", expected: false},
		{name: "release vs prerelease", candidate: "1.0.0", current: "1.0.0-rc.1", expected: true},
		{name: "prerelease vs release", candidate: "1.0.0-rc.1", current: "1.0.0", expected: false},
		{name: "v prefix newer", candidate: "v2.0.0", current: "v1.0.0", expected: true},
		{name: "development candidate", candidate: "dev", current: "1.0.0", expected: false},
		{name: "development current", candidate: "1.0.0", current: "dev", expected: false},
		{name: "empty candidate", candidate: "", current: "1.0.0", expected: false},
		{name: "both empty", candidate: "", current: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNewerRelease(tt.candidate, tt.current))
		})
	}
}

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.String(), "leaderboard-sync "))
}
