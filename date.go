package fat32

import (
	"time"
)

// The write/create date of a directory record is a bitfield counting from
// the MS-DOS epoch:
//  bits 0-4   day of month (1-31)
//  bits 5-8   month (1 = January)
//  bits 9-15  years since 1980 (0-127)
// The time field has a granularity of two seconds:
//  bits 0-4   seconds divided by two (0-29)
//  bits 5-10  minutes (0-59)
//  bits 11-15 hours (0-23)

// ParseDate decodes a FAT date stamp. The resulting time.Time always has a
// time of 00:00:00 UTC so it can be combined with ParseTime.
//
// Day 0 and month 0 are invalid on disk, for those time.Time{} is returned
// so callers can detect them with time.Time.IsZero(). A month above 12 is
// not rejected, time.Date normalizes it into the following year.
func ParseDate(input uint16) time.Time {
	day := int(input & 0x1F)
	month := int(input >> 5 & 0xF)
	year := int(input >> 9 & 0x7F)

	if day == 0 || month == 0 {
		return time.Time{}
	}

	return time.Date(1980+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseTime decodes a FAT time stamp. The resulting time.Time always has a
// date of January 1, year 1, which is the zero date of time.Time. That way
// midnight decodes to a value where time.Time.IsZero() holds.
//
// Minute and second overflow rolls over into the next unit. An hour above 23
// would roll over into the next day, so the whole time is clamped to 23:59:59
// instead.
func ParseTime(input uint16) time.Time {
	seconds := int(input&0x1F) * 2
	minutes := int(input >> 5 & 0x3F)
	hours := int(input >> 11 & 0x1F)

	if hours > 23 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return time.Date(1, 1, 1, hours, minutes, seconds, 0, time.UTC)
}
