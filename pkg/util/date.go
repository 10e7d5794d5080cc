package util

import "time"

// FromUnixAuto converts a unix timestamp in seconds or milliseconds.
// Values above 1e11 are taken as milliseconds.
func FromUnixAuto(ts int64) time.Time {
	if ts > 1e11 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}
