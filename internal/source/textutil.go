package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRe       = regexp.MustCompile(`\s+`)
	isoDateRe     = regexp.MustCompile(`\d{4}[-/.]\d{2}[-/.]\d{2}`)
	dmyDateRe     = regexp.MustCompile(`\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}`)
	clockRe       = regexp.MustCompile(`\d{1,2}:\d{2}`)
	feederCodeRe  = regexp.MustCompile(`(?i)\bF[-\s]?\d+`)
	nonDigitRe    = regexp.MustCompile(`\D`)
	dmyFullRe     = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
	ymdFullRe     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dmyShortRe    = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{2})$`)
	timesInTextRe = regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:[APap]\.?[Mm]\.?)?`)
)

// cleanText collapses runs of whitespace and trims.
func cleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// looksLikeDateTime reports whether a cell plausibly contains a date or
// a clock time.
func looksLikeDateTime(value string) bool {
	return isoDateRe.MatchString(value) ||
		dmyDateRe.MatchString(value) ||
		clockRe.MatchString(value)
}

// looksLikeDateValue matches date-shaped tokens only.
func looksLikeDateValue(value string) bool {
	return dmyDateRe.MatchString(value) || isoDateRe.MatchString(value)
}

// looksLikeTimeValue matches clock times and bare 3-4 digit values such
// as "0930".
func looksLikeTimeValue(value string) bool {
	if clockRe.MatchString(value) {
		return true
	}
	digits := nonDigitRe.ReplaceAllString(value, "")
	return len(digits) >= 3 && len(digits) <= 4 && len(digits) >= len(strings.TrimSpace(value))-2
}

// looksLikeFeederValue reports whether a cell reads like a feeder code
// rather than a locality name.
func looksLikeFeederValue(value string) bool {
	if value == "" {
		return false
	}
	if feederCodeRe.MatchString(value) {
		return true
	}
	hasAlpha := strings.ContainsFunc(value, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' })
	hasDigit := strings.ContainsAny(value, "0123456789")
	if hasAlpha && hasDigit {
		return true
	}
	run := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// normalizeDateValue rewrites the date shapes the utilities publish
// (dd-mm-yyyy, yyyy-mm-dd, 2-digit years, dot/slash separators) into
// yyyy-mm-dd. Unrecognized input passes through for the normalizer to
// reject later.
func normalizeDateValue(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	date = strings.ReplaceAll(strings.ReplaceAll(date, "/", "-"), ".", "-")
	if m := dmyFullRe.FindStringSubmatch(date); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
	}
	if ymdFullRe.MatchString(date) {
		return date
	}
	if m := dmyShortRe.FindStringSubmatch(date); m != nil {
		year, _ := strconv.Atoi(m[3])
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
		return fmt.Sprintf("%04d-%s-%s", year, m[2], m[1])
	}
	return date
}

// normalizeTimeValue canonicalizes clock tokens: am/pm variants are
// uppercased, bare "0930"-style digits gain a colon.
func normalizeTimeValue(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	t = replaceInsensitive(t, "a.m.", "AM")
	t = replaceInsensitive(t, "p.m.", "PM")
	t = cleanText(t)
	digits := nonDigitRe.ReplaceAllString(t, "")
	if !strings.Contains(t, ":") && (len(digits) == 3 || len(digits) == 4) {
		if len(digits) == 3 {
			t = fmt.Sprintf("0%s:%s", digits[:1], digits[1:])
		} else {
			t = fmt.Sprintf("%s:%s", digits[:2], digits[2:])
		}
	}
	t = replaceInsensitive(t, " am", " AM")
	t = replaceInsensitive(t, " pm", " PM")
	return strings.TrimSpace(t)
}

// combineDateTime joins a normalized date and time into the raw start
// string handed to the normalizer.
func combineDateTime(date, timeOfDay string) string {
	date = normalizeDateValue(date)
	timeOfDay = normalizeTimeValue(timeOfDay)
	switch {
	case date == "":
		return timeOfDay
	case timeOfDay == "":
		return date
	default:
		return date + " " + timeOfDay
	}
}

// extractTimes pulls every clock-shaped substring out of a token.
func extractTimes(value string) []string {
	matches := timesInTextRe.FindAllString(value, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, normalizeTimeValue(m))
	}
	return out
}

func replaceInsensitive(s, old, repl string) string {
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	var b strings.Builder
	for {
		idx := strings.Index(lower, oldLower)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(repl)
		s = s[idx+len(old):]
		lower = lower[idx+len(oldLower):]
	}
}

// joinAreaParts joins distinct administrative levels with a pipe.
func joinAreaParts(parts []string) string {
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return strings.Join(out, " | ")
}
