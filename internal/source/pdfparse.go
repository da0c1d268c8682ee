package source

import (
	"regexp"
	"strings"
)

// The bulletin PDFs come in two layouts: a serial-numbered table and a
// looser "Field: value" form. Tabular mode is tried first; key-value
// mode is the fallback. Both work on the linear token order recovered
// by the text decoder, not on coordinates.

type pdfRecord struct {
	Area   string
	Feeder string
	Start  string
	End    string
	Reason string
}

func (r pdfRecord) complete() bool {
	return (r.Area != "" || r.Feeder != "") && r.Start != ""
}

var (
	kvLineRe       = regexp.MustCompile(`(?i)^(Area|Feeder|Start|End|Reason)\s*:?-?\s*(.+)$`)
	rowSerialRe    = regexp.MustCompile(`^\d+[.)]?$`)
	adminLevelRe   = regexp.MustCompile(`(?i)\b(circle|division|sub\s*-?division|grid\s*station)\b`)
	feederWordRe   = regexp.MustCompile(`(?i)\b(11\s*-?kv|gss|grid|feeder)\b`)
	feederLabelRe  = regexp.MustCompile(`(?i)\b(feeder|name|code)\b`)
	feederPrefixRe = regexp.MustCompile(`(?i)^f[\s\-]?\d+`)
	lineSplitRe    = regexp.MustCompile(`\r?\n+`)
)

func parsePDFText(text string) []pdfRecord {
	lines := lineSplitRe.Split(text, -1)
	if records := parseTabular(lines); len(records) > 0 {
		return records
	}
	return parseKeyValue(lines)
}

// tableRow accumulates tokens for one serial-numbered row.
type tableRow struct {
	prefix  []string
	date    string
	start   string
	end     string
	remarks []string
}

func (r tableRow) complete() bool {
	return len(r.prefix) > 0 && r.date != "" && (r.start != "" || r.end != "")
}

// parseTabular activates once a sliding window of lines matches a
// table-header signature, then rebuilds rows from token order: a bare
// serial number opens a row, the first date-shaped token sets the row
// date, time-shaped tokens fill start and end, everything before the
// date is an area/feeder prefix and everything after the times is the
// remark.
func parseTabular(lines []string) []pdfRecord {
	var (
		tokens       []string
		window       []string
		tableStarted bool
	)

	for _, raw := range lines {
		line := cleanText(raw)
		if line == "" {
			continue
		}

		window = append(window, strings.ToLower(line))
		if len(window) > 6 {
			window = window[1:]
		}

		if !tableStarted {
			compact := strings.ReplaceAll(strings.Join(window, " "), " ", "")
			if (strings.Contains(compact, "shutdown") && strings.Contains(compact, "date")) ||
				(strings.Contains(compact, "starttime") && strings.Contains(compact, "endtime")) ||
				strings.Contains(compact, "remarks") ||
				strings.Contains(compact, "natureofwork") ||
				strings.Contains(compact, "description") {
				tableStarted = true
				window = nil
			}
			continue
		}

		if isTableHeaderToken(line) {
			continue
		}
		tokens = append(tokens, line)
	}

	if len(tokens) == 0 {
		return nil
	}

	var (
		records []pdfRecord
		current tableRow
	)
	flush := func() {
		if current.complete() {
			if rec, ok := finalizeTableRow(current); ok {
				records = append(records, rec)
			}
		}
		current = tableRow{}
	}

	for _, token := range tokens {
		if isRowStartToken(token) {
			flush()
			continue
		}
		if current.date == "" && looksLikeDateValue(token) {
			current.date = token
			continue
		}
		if current.date != "" && assignTimeToken(&current, token) {
			continue
		}
		if current.date != "" && (current.start != "" || current.end != "") {
			if isTimeBridge(token) {
				continue
			}
			current.remarks = append(current.remarks, token)
			continue
		}
		current.prefix = append(current.prefix, token)
	}
	flush()

	return records
}

var tableHeaderTokens = map[string]bool{
	"serial": true, "serial no": true, "sr": true, "sr.": true, "sr no": true,
	"sr. no": true, "sr.no": true, "s.no": true, "no": true, "no.": true,
	"division": true, "circle": true, "sub division": true, "sub-division": true,
	"subdivision": true, "area": true, "feeder": true, "feeder name": true,
	"feeder code": true, "name of feeder": true, "feeder name & code": true,
	"feeder name&code": true, "feeder name/code": true, "shutdown date": true,
	"shutdown from": true, "shutdown to": true, "shutdown time from": true,
	"shutdown time to": true, "time from": true, "time to": true, "date": true,
	"start time": true, "start": true, "end time": true, "end": true,
	"remarks": true, "reason": true, "nature of work": true, "type of work": true,
	"description": true, "grid station": true, "grid": true,
}

func isTableHeaderToken(line string) bool {
	normalized := strings.ToLower(line)
	normalized = strings.ReplaceAll(normalized, "shut down", "shutdown")
	normalized = cleanText(normalized)
	if normalized == "" {
		return true
	}
	return tableHeaderTokens[normalized]
}

// isRowStartToken matches bare serial numbers like "3" or "12." that
// are not themselves times or dates.
func isRowStartToken(token string) bool {
	if token == "" {
		return false
	}
	if !rowSerialRe.MatchString(strings.ReplaceAll(token, " ", "")) {
		return false
	}
	return !looksLikeTimeValue(token) && !looksLikeDateValue(token)
}

// assignTimeToken routes a token into the row's start/end slots. A
// token carrying two clock values fills both; bare am/pm suffixes
// attach to the most recent time.
func assignTimeToken(row *tableRow, token string) bool {
	times := extractTimes(token)
	if len(times) >= 2 {
		if row.start == "" {
			row.start = times[0]
		}
		if row.end == "" {
			row.end = times[1]
		}
		return true
	}

	switch {
	case row.start == "" && looksLikeTimeValue(token):
		row.start = token
	case row.start != "" && row.end == "" && isTimeSuffix(token):
		row.start += " " + normalizeTimeSuffix(token)
	case row.start != "" && row.end == "" && looksLikeTimeValue(token):
		row.end = token
	case row.end != "" && isTimeSuffix(token):
		row.end += " " + normalizeTimeSuffix(token)
	default:
		return false
	}
	return true
}

func isTimeSuffix(token string) bool {
	n := strings.ToLower(strings.ReplaceAll(token, ".", ""))
	return n == "am" || n == "pm"
}

func normalizeTimeSuffix(token string) string {
	return strings.ToUpper(strings.ReplaceAll(token, ".", ""))
}

var timeBridges = map[string]bool{
	"to": true, "upto": true, "till": true, "until": true, "-": true,
	"—": true, "–": true, "hrs": true, "hours": true, "hr": true,
}

func isTimeBridge(token string) bool {
	n := strings.ToLower(strings.ReplaceAll(token, ".", ""))
	n = strings.ReplaceAll(n, " ", "")
	return n != "" && timeBridges[n]
}

func finalizeTableRow(row tableRow) (pdfRecord, bool) {
	area, feeder := splitAreaFeeder(row.prefix)
	if area == "" && feeder == "" {
		return pdfRecord{}, false
	}
	end := row.end
	if end == "" {
		end = row.start
	}
	rec := pdfRecord{
		Area:   area,
		Feeder: feeder,
		Start:  combineDateTime(row.date, row.start),
		End:    combineDateTime(row.date, end),
		Reason: strings.TrimSpace(strings.Join(row.remarks, " ")),
	}
	if !rec.complete() {
		return pdfRecord{}, false
	}
	return rec, true
}

// splitAreaFeeder scans the prefix backwards for the contiguous run of
// feeder-looking tokens at the tail; everything before it is area.
func splitAreaFeeder(tokens []string) (string, string) {
	var clean []string
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return "", ""
	}

	feederStart := -1
	for i := len(clean) - 1; i >= 0; i-- {
		if looksLikeFeederToken(clean[i]) {
			feederStart = i
		} else if feederStart >= 0 {
			break
		}
	}

	if feederStart < 0 {
		return formatAreaTokens(clean), ""
	}

	areaTokens := clean[:feederStart]
	feederTokens := clean[feederStart:]
	if len(areaTokens) == 0 {
		areaTokens = feederTokens
		feederTokens = nil
	}
	return formatAreaTokens(areaTokens), formatFeederTokens(feederTokens)
}

func looksLikeFeederToken(token string) bool {
	if token == "" {
		return false
	}
	if strings.ContainsAny(token, "0123456789") {
		return true
	}
	return feederWordRe.MatchString(token) || feederPrefixRe.MatchString(token)
}

// formatAreaTokens strips administrative level labels and joins the
// distinct remainders with a pipe.
func formatAreaTokens(tokens []string) string {
	var parts []string
	for _, token := range tokens {
		token = cleanText(adminLevelRe.ReplaceAllString(token, ""))
		if token != "" {
			parts = append(parts, token)
		}
	}
	return joinAreaParts(parts)
}

func formatFeederTokens(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	joined := cleanText(strings.Join(tokens, " "))
	return cleanText(feederLabelRe.ReplaceAllString(joined, ""))
}

// parseKeyValue handles the "Field: value" layout. Labeled lines
// assign directly; free-standing lines fill the first open slot in
// order area, feeder, start, end, reason. A record flushes once a
// reason completes it, when a fresh Area: line arrives on an already
// complete record, or at end of input.
func parseKeyValue(lines []string) []pdfRecord {
	var (
		records []pdfRecord
		current pdfRecord
	)

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || isKVHeaderLine(line) {
			continue
		}

		if m := kvLineRe.FindStringSubmatch(line); m != nil {
			field := strings.ToLower(m[1])
			value := strings.TrimSpace(m[2])
			if field == "area" && current.complete() {
				records = append(records, current)
				current = pdfRecord{}
			}
			switch field {
			case "area":
				current.Area = value
			case "feeder":
				current.Feeder = value
			case "start":
				current.Start = value
			case "end":
				current.End = value
			case "reason":
				current.Reason = value
			}
			if current.complete() && field == "reason" {
				records = append(records, current)
				current = pdfRecord{}
			}
			continue
		}

		switch {
		case current.Area == "":
			current.Area = line
		case current.Feeder == "" && looksLikeKVFeeder(line):
			current.Feeder = line
		case current.Start == "" && looksLikeDateTime(line):
			current.Start = line
		case current.End == "" && looksLikeDateTime(line):
			current.End = line
		default:
			current.Reason = strings.TrimSpace(current.Reason + " " + line)
		}
	}

	if current.complete() {
		records = append(records, current)
	}
	return records
}

func isKVHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "area") && strings.Contains(lower, "feeder") && strings.Contains(lower, "start")
}

func looksLikeKVFeeder(value string) bool {
	if value == "" {
		return false
	}
	if feederCodeRe.MatchString(value) {
		return true
	}
	return len(value) <= 40
}
