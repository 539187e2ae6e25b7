package featureflag

import (
	"slices"
	"strings"
)

// FeatureFlag is the set of enabled quadmap features.
type FeatureFlag map[Flag]struct{}

// New returns the feature flags named in flags. Names are trimmed and
// upper-cased; empty names are ignored.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag)
	for _, f := range flags {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		featureFlag[Flag(f)] = struct{}{}
	}
	return featureFlag
}

// IsSet reports whether flag is enabled.
func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs do when flag is enabled.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if f.IsSet(flag) {
		do()
	}
}

// Enabled returns the enabled flags sorted by name.
func (f FeatureFlag) Enabled() []Flag {
	flags := make([]Flag, 0, len(f))
	for flag := range f {
		flags = append(flags, flag)
	}
	slices.Sort(flags)
	return flags
}

// Unknown returns the enabled flags that quadmap does not define, sorted by
// name.
func (f FeatureFlag) Unknown() []Flag {
	var unknown []Flag
	for _, flag := range f.Enabled() {
		if !slices.Contains(knownFlags, flag) {
			unknown = append(unknown, flag)
		}
	}
	return unknown
}
