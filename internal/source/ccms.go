package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// HybridSource scrapes the CCMS feeder outage listing. The endpoint
// alternates between a JSON payload for its AJAX widgets and a
// server-rendered HTML table, so the body is tried as JSON first and
// as HTML second.
type HybridSource struct {
	url        string
	confidence float64
	fetcher    Fetcher
	logger     *zap.Logger
}

func NewHybridSource(url string, confidence float64, fetcher Fetcher, logger *zap.Logger) *HybridSource {
	return &HybridSource{url: strings.TrimSpace(url), confidence: confidence, fetcher: fetcher, logger: logger}
}

func (s *HybridSource) Name() string { return "ccms" }

func (s *HybridSource) Fetch(ctx context.Context) ([]event.RawCandidate, error) {
	headers := http.Header{}
	headers.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	headers.Set("Referer", "https://ccms.pitc.com.pk/")

	body, err := s.fetcher.Get(ctx, s.url, headers)
	if err != nil {
		return nil, fmt.Errorf("ccms: fetch %s: %w", s.url, err)
	}

	if items := s.parseJSON(body); len(items) > 0 {
		return items, nil
	}
	return s.parseHTML(body)
}

func (s *HybridSource) parseJSON(body []byte) []event.RawCandidate {
	var decoded any
	if err := json.Unmarshal(bytes.TrimSpace(body), &decoded); err != nil {
		return nil
	}

	var items []event.RawCandidate
	for _, row := range extractJSONRows(decoded) {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		record := make(map[string]string, len(obj))
		for k, v := range obj {
			record[k] = cleanJSONValue(v)
		}
		if item, ok := s.mapRow(record); ok {
			items = append(items, item)
		}
	}
	return items
}

// extractJSONRows digs the record list out of whatever container shape
// the endpoint wrapped it in.
func extractJSONRows(decoded any) []any {
	switch v := decoded.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"data", "Data", "items", "Items", "results", "Results", "value", "Value", "table", "Table", "rows", "Rows", "payload"} {
			if inner, ok := v[key]; ok {
				if list, ok := inner.([]any); ok {
					return list
				}
			}
		}
		for _, inner := range v {
			switch iv := inner.(type) {
			case []any:
				return iv
			case map[string]any:
				return []any{iv}
			}
		}
		return []any{v}
	default:
		return nil
	}
}

func cleanJSONValue(v any) string {
	switch val := v.(type) {
	case string:
		return cleanText(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}

func (s *HybridSource) parseHTML(body []byte) ([]event.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ccms: parse html: %w", err)
	}

	var items []event.RawCandidate
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		headers := extractHeaderKeys(table)
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var raw []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				raw = append(raw, cleanText(td.Text()))
			})
			if len(raw) == 0 {
				return
			}
			record := make(map[string]string)
			for idx, value := range raw {
				if value == "" {
					continue
				}
				if idx < len(headers) && headers[idx] != "" {
					record[headers[idx]] = value
				}
			}
			if len(record) == 0 {
				record = guessFromCells(raw)
			}
			if item, ok := s.mapRow(record); ok {
				items = append(items, item)
			}
		})
	})
	return items, nil
}

// extractHeaderKeys classifies each th into a canonical record key.
func extractHeaderKeys(table *goquery.Selection) []string {
	var keys []string
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		var row []string
		tr.Find("th").Each(func(_ int, th *goquery.Selection) {
			row = append(row, headerToKey(th.Text()))
		})
		if len(row) > 0 {
			keys = row
			return false
		}
		return true
	})
	return keys
}

func headerToKey(text string) string {
	n := strings.ToLower(cleanText(text))
	switch {
	case n == "":
		return ""
	case strings.Contains(n, "sub") && strings.Contains(n, "division"):
		return "SubDivision"
	case strings.Contains(n, "feeder"):
		return "FeederName"
	case strings.Contains(n, "shutdown") && strings.Contains(n, "date"):
		return "ShutdownDate"
	case strings.Contains(n, "start"):
		return "StartTime"
	case strings.Contains(n, "end") || strings.Contains(n, "to"):
		return "EndTime"
	case strings.Contains(n, "reason") || strings.Contains(n, "remark"):
		return "Reason"
	case strings.Contains(n, "type"):
		return "ShutdownType"
	case strings.Contains(n, "circle"):
		return "Circle"
	case strings.Contains(n, "division"):
		return "Division"
	case strings.Contains(n, "town") || strings.Contains(n, "area"):
		return "Area"
	default:
		return ""
	}
}

// guessFromCells maps a headerless row by the column order the CCMS
// grid has historically used.
func guessFromCells(cells []string) map[string]string {
	get := func(i int) (string, bool) {
		if i < len(cells) && cells[i] != "" {
			return cells[i], true
		}
		return "", false
	}

	m := make(map[string]string)
	if v, ok := get(2); ok {
		m["SubDivision"] = v
	} else if v, ok := get(1); ok {
		m["Area"] = v
	}
	if v, ok := get(3); ok {
		m["FeederName"] = v
	} else if v, ok := get(0); ok {
		m["FeederName"] = v
	}
	if v, ok := get(4); ok {
		m["ShutdownDate"] = v
	}
	if v, ok := get(5); ok {
		m["StartTime"] = v
	}
	if v, ok := get(6); ok {
		m["EndTime"] = v
	}
	if v, ok := get(7); ok {
		m["ShutdownType"] = v
	}
	if v, ok := get(8); ok {
		m["Reason"] = v
	}
	return m
}

var leadingDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

func (s *HybridSource) mapRow(row map[string]string) (event.RawCandidate, bool) {
	if len(row) == 0 {
		return event.RawCandidate{}, false
	}

	start := resolveStart(row)
	if start == "" {
		return event.RawCandidate{}, false
	}
	end := resolveEnd(row, start)

	area := firstNonEmpty(row, "SubDivision", "Subdivision", "Area", "AreaName", "Town", "Circle", "Division", "GridStation")
	feeder := firstNonEmpty(row, "FeederName", "Feeder", "Feeder_Code", "FeederCode", "FeederId", "Feeder ID", "FeederDescription")
	reason := firstNonEmpty(row, "Reason", "reason", "Remarks", "Remark", "Purpose", "ShutdownType", "Type", "Category")
	typ := firstNonEmpty(row, "Type", "type", "ShutdownType", "Category")

	if typ == "" && reason != "" {
		if strings.Contains(strings.ToLower(reason), "maint") {
			typ = "maintenance"
		} else {
			typ = "scheduled"
		}
	}
	if area == "" {
		area = row["Division"]
	}
	if feeder == "" {
		feeder = row["Circle"]
	}
	if area == "" && feeder == "" {
		return event.RawCandidate{}, false
	}
	if typ == "" {
		typ = "scheduled"
	}

	return event.RawCandidate{
		Area:       area,
		Feeder:     feeder,
		Start:      start,
		End:        end,
		Type:       typ,
		Reason:     reason,
		Source:     s.Name(),
		URL:        s.url,
		Confidence: s.confidence,
	}, true
}

func resolveStart(row map[string]string) string {
	if v := firstNonEmpty(row, "start", "Start", "StartDateTime", "startDateTime", "StartDateTimeString", "FromDateTime", "fromDateTime"); v != "" {
		return v
	}
	date := firstNonEmpty(row, "StartDate", "startDate", "ShutdownDate", "Date", "date", "FromDate", "fromDate")
	timeOfDay := firstNonEmpty(row, "StartTime", "startTime", "FromTime", "fromTime", "From", "from")
	return combineDateTime(date, timeOfDay)
}

func resolveEnd(row map[string]string, start string) string {
	if v := firstNonEmpty(row, "end", "End", "EndDateTime", "endDateTime", "ToDateTime", "toDateTime"); v != "" {
		return v
	}
	date := firstNonEmpty(row, "EndDate", "endDate", "ToDate", "toDate", "ShutdownDate", "Date", "date")
	if date == "" {
		if m := leadingDateRe.FindStringSubmatch(normalizeDateValue(start)); m != nil {
			date = m[1]
		}
	}
	timeOfDay := firstNonEmpty(row, "EndTime", "endTime", "ToTime", "toTime", "TillTime", "tillTime", "till")
	if date != "" && timeOfDay == "" {
		return ""
	}
	return combineDateTime(date, timeOfDay)
}

func firstNonEmpty(row map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := cleanText(row[key]); v != "" {
			return v
		}
	}
	return ""
}
