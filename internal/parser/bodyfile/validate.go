package bodyfile

import "errors"

// ErrNoTimestamp is returned by ValidateTimestamps when none of the four
// time fields carries a usable value.
var ErrNoTimestamp = errors.New("bodyfile line carries no usable timestamp")

// HasTimestamp reports whether at least one of atime, mtime, ctime or crtime
// holds a real timestamp, meaning a value that is neither zero (unset) nor
// the -1 unknown sentinel.
func (l *Line) HasTimestamp() bool {
	for _, t := range []int64{l.Atime, l.Mtime, l.Ctime, l.Crtime} {
		if t != 0 && t != TimeUnknown {
			return true
		}
	}
	return false
}

// ValidateTimestamps enforces mactime's requirement that at least one time
// value is non-zero. It is a semantic check layered on top of parsing:
// ParseLine accepts lines that violate it because bodyfiles produced by
// third-party tools frequently do.
func ValidateTimestamps(l *Line) error {
	if !l.HasTimestamp() {
		return ErrNoTimestamp
	}
	return nil
}
