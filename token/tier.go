package token

import "time"

// Tier is one of the 15 temporal cadences governing token-allocation slot
// alignment (spec.md §3, §4.4). The numeric values are the wire encoding
// used in the canonical signed message (spec.md §4.5) and must not be
// reordered — spec.md §9 calls the enumeration "a closed sum... new tiers
// are a breaking change."
type Tier uint8

const (
	Min1 Tier = iota
	Min5
	Min10
	Min30
	Hour1
	Hour3
	Hour6
	Hour12
	Day1
	Day7
	Day15
	Day30
	Day90
	Day180
	Day365
)

var tierNames = map[Tier]string{
	Min1: "min1", Min5: "min5", Min10: "min10", Min30: "min30",
	Hour1: "hour1", Hour3: "hour3", Hour6: "hour6", Hour12: "hour12",
	Day1: "day1", Day7: "day7", Day15: "day15", Day30: "day30",
	Day90: "day90", Day180: "day180", Day365: "day365",
}

// String renders the tier in the lowercase form used for display and
// logging, matching the original's strum(serialize_all = "lowercase").
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// Duration returns the tier's fixed cadence.
func (t Tier) Duration() time.Duration {
	switch t {
	case Min1:
		return time.Minute
	case Min5:
		return 5 * time.Minute
	case Min10:
		return 10 * time.Minute
	case Min30:
		return 30 * time.Minute
	case Hour1:
		return time.Hour
	case Hour3:
		return 3 * time.Hour
	case Hour6:
		return 6 * time.Hour
	case Hour12:
		return 12 * time.Hour
	case Day1:
		return 24 * time.Hour
	case Day7:
		return 7 * 24 * time.Hour
	case Day15:
		return 15 * 24 * time.Hour
	case Day30:
		return 30 * 24 * time.Hour
	case Day90:
		return 90 * 24 * time.Hour
	case Day180:
		return 180 * 24 * time.Hour
	case Day365:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// IsValidSlot reports whether t has the zeroed sub-field components and
// integer coordinate multiple-of-base that this tier requires (spec.md
// §4.4). Ported from the original Tier::is_valid_slot
// (original_source/modules/antiflood-tokens/interfaces/src/lib.rs).
func (t Tier) IsValidSlot(at time.Time) bool {
	at = at.UTC()
	switch t {
	case Min1:
		return at.Second() == 0 && at.Nanosecond() == 0
	case Min5:
		return isCorrectMinute(at, 5)
	case Min10:
		return isCorrectMinute(at, 10)
	case Min30:
		return isCorrectMinute(at, 30)
	case Hour1:
		return at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0
	case Hour3:
		return isCorrectHour(at, 3)
	case Hour6:
		return isCorrectHour(at, 6)
	case Hour12:
		return isCorrectHour(at, 12)
	case Day1:
		return at.Hour() == 0 && at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0
	case Day7:
		return isCorrectDay(at, 7)
	case Day15:
		return isCorrectDay(at, 15)
	case Day30:
		return isCorrectDay(at, 30)
	case Day90:
		return isCorrectDay(at, 90)
	case Day180:
		return isCorrectDay(at, 180)
	case Day365:
		return isCorrectDay(at, 365)
	default:
		return false
	}
}

func isCorrectMinute(at time.Time, base int) bool {
	return at.Second() == 0 && at.Nanosecond() == 0 && at.Minute()%base == 0
}

func isCorrectHour(at time.Time, base int) bool {
	return at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0 && at.Hour()%base == 0
}

// isCorrectDay anchors on December 31 of the previous year rather than
// January 1, reproducing the original's check_is_correct_day exactly —
// spec.md §4.4 and §9 call this out as a quirk to preserve, not fix: "the
// reference anchor is the last day of the prior calendar year."
func isCorrectDay(at time.Time, base int) bool {
	anchor := priorYearDec31(at)
	days := int64(at.Sub(anchor) / (24 * time.Hour))
	return at.Hour() == 0 && at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0 &&
		days%int64(base) == 0
}

func priorYearDec31(at time.Time) time.Time {
	return time.Date(at.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// NormalizeToNext returns at if it already satisfies IsValidSlot, or the
// smallest valid slot strictly greater than at otherwise (spec.md §4.4).
// Ported from the original Tier::normalize_to_next, with two corrections
// to defects the original carries: Min30 (the source calls its helper
// with base 15 instead of 30, fixed per spec.md §9's explicit
// instruction) and Day1 (the source truncated to the hour rather than
// the day, leaving the result's hour unchanged and failing its own
// IsValidSlot for any non-midnight input; fixed here since nothing names
// it as a quirk to preserve).
func (t Tier) NormalizeToNext(at time.Time) time.Time {
	at = at.UTC()
	switch t {
	case Min1:
		if at.Second() == 0 && at.Nanosecond() == 0 {
			return at
		}
		return truncToMinute(at).Add(t.Duration())
	case Min5:
		return normalizeToNextMinute(t, at, 5)
	case Min10:
		return normalizeToNextMinute(t, at, 10)
	case Min30:
		return normalizeToNextMinute(t, at, 30)
	case Hour1:
		if at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0 {
			return at
		}
		return truncToHour(at).Add(t.Duration())
	case Hour3:
		return normalizeToNextHour(t, at, 3)
	case Hour6:
		return normalizeToNextHour(t, at, 6)
	case Hour12:
		return normalizeToNextHour(t, at, 12)
	case Day1:
		if at.Hour() == 0 && at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0 {
			return at
		}
		return truncToDay(at).Add(t.Duration())
	case Day7:
		return normalizeToNextDay(t, at, 7)
	case Day15:
		return normalizeToNextDay(t, at, 15)
	case Day30:
		return normalizeToNextDay(t, at, 30)
	case Day90:
		return normalizeToNextDay(t, at, 90)
	case Day180:
		return normalizeToNextDay(t, at, 180)
	case Day365:
		return normalizeToNextDay(t, at, 365)
	default:
		return at
	}
}

func truncToMinute(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), 0, 0, time.UTC)
}

func truncToHour(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), 0, 0, 0, time.UTC)
}

func truncToDay(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeToNextMinute(t Tier, at time.Time, base int) time.Time {
	if at.Minute()%base == 0 && at.Second() == 0 && at.Nanosecond() == 0 {
		return at
	}
	truncated := truncToMinute(at)
	remainder := truncated.Minute() % base
	if remainder == 0 {
		return truncated
	}
	return truncated.Add(-time.Duration(remainder) * time.Minute).Add(t.Duration())
}

func normalizeToNextHour(t Tier, at time.Time, base int) time.Time {
	if at.Hour()%base == 0 && at.Minute() == 0 && at.Second() == 0 && at.Nanosecond() == 0 {
		return at
	}
	truncated := truncToHour(at)
	remainder := truncated.Hour() % base
	if remainder == 0 {
		return truncated
	}
	return truncated.Add(-time.Duration(remainder) * time.Hour).Add(t.Duration())
}

func normalizeToNextDay(t Tier, at time.Time, base int) time.Time {
	if isCorrectDay(at, base) {
		return at
	}
	truncated := truncToDay(at)
	anchor := priorYearDec31(truncated)
	days := int64(truncated.Sub(anchor) / (24 * time.Hour))
	remainder := days % int64(base)
	if remainder == 0 {
		return truncated
	}
	return truncated.AddDate(0, 0, -int(remainder)).Add(t.Duration())
}
