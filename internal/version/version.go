// Package version implements the semantic versioning scheme used for prompt
// versions: MAJOR.MINOR.PATCH with optional SNAPSHOT, M (milestone), and RC
// pre-release labels.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bump selects which component of a version advances.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
)

// Pre-release labels, from least to most stable. LabelStable is the empty
// suffix: "1.2.3" rather than "1.2.3-RC.1".
const (
	LabelSnapshot  = "SNAPSHOT"
	LabelMilestone = "M"
	LabelRC        = "RC"
	LabelStable    = ""
)

// ErrInvalidVersion reports a string that does not parse as a version.
var ErrInvalidVersion = errors.New("invalid version string")

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([A-Za-z]+)(?:\.(\d+))?)?$`)

// Version is a parsed semantic version. PreNumber is meaningful only when
// PreLabel is non-empty; 0 means the label carries no number ("1.0.0-SNAPSHOT").
type Version struct {
	Major     int
	Minor     int
	Patch     int
	PreLabel  string
	PreNumber int
}

// Parse parses strings like "1.2.3", "1.2.3-SNAPSHOT", and "1.2.3-RC.1".
func Parse(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	v := Version{Major: major, Minor: minor, Patch: patch, PreLabel: m[4]}
	if m[5] != "" {
		v.PreNumber, _ = strconv.Atoi(m[5])
	}
	return v, nil
}

// String formats the version. A stable version has no suffix.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreLabel == LabelStable {
		return base
	}
	if v.PreNumber > 0 {
		return fmt.Sprintf("%s-%s.%d", base, v.PreLabel, v.PreNumber)
	}
	return base + "-" + v.PreLabel
}

// IsPreRelease reports whether the version carries a pre-release label.
func (v Version) IsPreRelease() bool {
	return v.PreLabel != LabelStable
}

// Next computes the version that follows current. An empty or unparseable
// current starts the series at 1.0.0. Promoting a pre-release to stable with
// a patch bump keeps the numeric components ("1.2.0-RC.2" -> "1.2.0");
// every other combination bumps the requested component and resets the ones
// below it. The label and number are applied to the result as given.
func Next(current string, bump Bump, label string, number int) string {
	next := Version{Major: 1, PreLabel: label, PreNumber: number}
	cur, err := Parse(current)
	if current == "" || err != nil {
		return next.String()
	}

	next.Major, next.Minor, next.Patch = cur.Major, cur.Minor, cur.Patch
	promote := label == LabelStable && cur.IsPreRelease() && bump == BumpPatch
	if !promote {
		switch bump {
		case BumpMajor:
			next.Major++
			next.Minor = 0
			next.Patch = 0
		case BumpMinor:
			next.Minor++
			next.Patch = 0
		default:
			next.Patch++
		}
	}
	return next.String()
}

// labelRank orders pre-release labels below stable per SemVer: a version
// with a label precedes its stable release.
func labelRank(label string) int {
	switch label {
	case LabelSnapshot:
		return 0
	case LabelMilestone:
		return 1
	case LabelRC:
		return 2
	case LabelStable:
		return 3
	default:
		// Unknown labels sort with snapshots rather than failing.
		return 0
	}
}

// Compare orders two versions: -1 when a precedes b, 0 when equal, 1 when a
// follows b. Pre-releases precede the corresponding stable version.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	if c := compareInt(labelRank(a.PreLabel), labelRank(b.PreLabel)); c != 0 {
		return c
	}
	return compareInt(a.PreNumber, b.PreNumber)
}

// CompareStrings parses and compares two version strings. Unparseable
// versions sort before everything parseable, and equal to each other.
func CompareStrings(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return Compare(va, vb)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
