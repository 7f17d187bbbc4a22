package version_test

import (
	"errors"
	"testing"

	"github.com/promptgauge/promptgauge/internal/version"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  version.Version
	}{
		{"1.0.0", version.Version{Major: 1}},
		{"2.13.4", version.Version{Major: 2, Minor: 13, Patch: 4}},
		{"1.0.1-SNAPSHOT", version.Version{Major: 1, Patch: 1, PreLabel: "SNAPSHOT"}},
		{"1.1.0-M.1", version.Version{Major: 1, Minor: 1, PreLabel: "M", PreNumber: 1}},
		{"1.2.3-RC.2", version.Version{Major: 1, Minor: 2, Patch: 3, PreLabel: "RC", PreNumber: 2}},
		{"  1.0.0  ", version.Version{Major: 1}},
	}
	for _, tt := range tests {
		got, err := version.Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "1.0", "1.0.0.0", "v1.0.0", "1.0.0-", "1.0.0-RC.x", "abc"} {
		if _, err := version.Parse(input); !errors.Is(err, version.ErrInvalidVersion) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidVersion", input, err)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"1.0.0", "0.2.9", "1.0.1-SNAPSHOT", "1.1.0-M.1", "2.0.0-RC.3"} {
		v, err := version.Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := v.String(); got != s {
			t.Errorf("Parse(%q).String() = %q", s, got)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		current string
		bump    version.Bump
		label   string
		number  int
		want    string
	}{
		{"first version", "", version.BumpPatch, version.LabelStable, 0, "1.0.0"},
		{"unparseable starts fresh", "not-a-version", version.BumpPatch, version.LabelStable, 0, "1.0.0"},
		{"patch", "1.0.0", version.BumpPatch, version.LabelStable, 0, "1.0.1"},
		{"minor resets patch", "1.0.4", version.BumpMinor, version.LabelStable, 0, "1.1.0"},
		{"major resets below", "1.4.2", version.BumpMajor, version.LabelStable, 0, "2.0.0"},
		{"patch snapshot", "1.0.0", version.BumpPatch, version.LabelSnapshot, 0, "1.0.1-SNAPSHOT"},
		{"minor milestone", "1.0.0", version.BumpMinor, version.LabelMilestone, 1, "1.1.0-M.1"},
		{"rc series", "1.0.0-RC.1", version.BumpPatch, version.LabelRC, 2, "1.0.1-RC.2"},
		{"promote rc to stable keeps numbers", "1.2.0-RC.2", version.BumpPatch, version.LabelStable, 0, "1.2.0"},
		{"promote snapshot to stable keeps numbers", "1.0.1-SNAPSHOT", version.BumpPatch, version.LabelStable, 0, "1.0.1"},
		{"stable major from pre-release still bumps", "1.2.0-RC.2", version.BumpMajor, version.LabelStable, 0, "2.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := version.Next(tt.current, tt.bump, tt.label, tt.number)
			if got != tt.want {
				t.Errorf("Next(%q, %s, %q, %d) = %q, want %q",
					tt.current, tt.bump, tt.label, tt.number, got, tt.want)
			}
		})
	}
}

func TestCompareStrings(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.1.0", "1.0.9", 1},
		{"2.0.0", "1.9.9", 1},
		{"1.0.0-SNAPSHOT", "1.0.0", -1},
		{"1.0.0-M.1", "1.0.0-RC.1", -1},
		{"1.0.0-RC.1", "1.0.0-RC.2", -1},
		{"1.0.0-RC.2", "1.0.0", -1},
		{"garbage", "1.0.0", -1},
		{"garbage", "junk", 0},
	}
	for _, tt := range tests {
		if got := version.CompareStrings(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareStrings(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
