package dao

import "time"

// utc normalises timestamps on the way in and out so string-backed drivers sort them correctly
// and callers always see UTC.
func utc(t time.Time) time.Time {
	return t.UTC()
}
