package versions

import "github.com/Masterminds/semver/v3"

// IsNewerRelease reports whether candidate is strictly greater than current.
// Both must be valid semantic versions; development builds such as "dev"
// never compare as newer or older.
func IsNewerRelease(candidate, current string) bool {
	candidateSemver, errCandidate := semver.NewVersion(candidate)
	currentSemver, errCurrent := semver.NewVersion(current)

	if errCandidate != nil || errCurrent != nil {
		return false
	}

	return candidateSemver.GreaterThan(currentSemver)
}
