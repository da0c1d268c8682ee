package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// HTMLTableSource scrapes the utility's published shutdown schedule
// tables. The portal moves the page around, so the configured URL is
// tried first and a list of known fallbacks after it; the first page
// whose tables yield rows wins.
type HTMLTableSource struct {
	url        string
	fallbacks  []string
	confidence float64
	fetcher    Fetcher
	logger     *zap.Logger

	resolvedURL string
}

var (
	nonAlphaRe    = regexp.MustCompile(`[^a-z]+`)
	multiDigitRe  = regexp.MustCompile(`\d{2,}`)
	letterSpaceRe = regexp.MustCompile(`^[A-Z\s]+$`)
)

func NewHTMLTableSource(url string, fallbacks []string, confidence float64, fetcher Fetcher, logger *zap.Logger) *HTMLTableSource {
	clean := make([]string, 0, len(fallbacks))
	for _, f := range fallbacks {
		if f = strings.TrimSpace(f); f != "" {
			clean = append(clean, f)
		}
	}
	return &HTMLTableSource{
		url:        strings.TrimSpace(url),
		fallbacks:  clean,
		confidence: confidence,
		fetcher:    fetcher,
		logger:     logger,
	}
}

func (s *HTMLTableSource) Name() string { return "official" }

// ResolvedURL reports the page that actually produced rows on the last
// successful Fetch.
func (s *HTMLTableSource) ResolvedURL() string { return s.resolvedURL }

func (s *HTMLTableSource) Fetch(ctx context.Context) ([]event.RawCandidate, error) {
	var lastErr error
	for _, candidate := range s.candidateURLs() {
		body, err := s.fetcher.Get(ctx, candidate, nil)
		if err != nil {
			lastErr = err
			s.logger.Debug("schedule page unavailable", zap.String("url", candidate), zap.Error(err))
			continue
		}
		items, err := s.parsePage(body, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 {
			s.resolvedURL = candidate
			return items, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("official: no schedule page yielded rows: %w", lastErr)
	}
	return nil, nil
}

func (s *HTMLTableSource) candidateURLs() []string {
	candidates := make([]string, 0, 1+len(s.fallbacks))
	if s.url != "" {
		candidates = append(candidates, s.url)
	}
	candidates = append(candidates, s.fallbacks...)

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		unique = append(unique, c)
	}
	return unique
}

// parsePage scans every table on the page and keeps the first one that
// produces rows.
func (s *HTMLTableSource) parsePage(body []byte, pageURL string) ([]event.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("official: parse %s: %w", pageURL, err)
	}

	var items []event.RawCandidate
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := s.parseTable(table, pageURL)
		if len(rows) > 0 {
			items = rows
			return false
		}
		return true
	})
	return items, nil
}

func (s *HTMLTableSource) parseTable(table *goquery.Selection, pageURL string) []event.RawCandidate {
	header := extractTableHeader(table)

	var rows []event.RawCandidate
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := extractRowCells(tr)
		if len(cells) == 0 || looksLikeHeaderValues(cells) {
			return
		}
		if item, ok := s.buildRow(cells, header, pageURL); ok {
			rows = append(rows, item)
		}
	})
	return rows
}

// extractTableHeader prefers th cells; when a table has none, the
// first row is used if its values read like labels rather than data.
func extractTableHeader(table *goquery.Selection) []string {
	var header []string
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		var ths []string
		tr.Find("th").Each(func(_ int, th *goquery.Selection) {
			ths = append(ths, cleanText(th.Text()))
		})
		if len(ths) > 0 {
			header = ths
			return false
		}
		return true
	})
	if header != nil {
		return header
	}

	first := table.Find("tr").First()
	cells := extractRowCells(first)
	if looksLikeHeaderValues(cells) {
		return cells
	}
	return nil
}

func extractRowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		text := cleanText(cell.Text())
		if text == "" {
			text = strings.TrimSpace(cell.AttrOr("data-label", ""))
		}
		cells = append(cells, text)
	})
	return cells
}

// looksLikeHeaderValues requires at least two label-like cells and no
// multi-digit numbers anywhere in the row.
func looksLikeHeaderValues(cells []string) bool {
	keywords := []string{"area", "feeder", "division", "sub", "date", "time", "reason", "remarks", "shutdown"}
	labelish := 0
cellLoop:
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		if multiDigitRe.MatchString(cell) {
			return false
		}
		lower := strings.ToLower(cell)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				labelish++
				continue cellLoop
			}
		}
		if letterSpaceRe.MatchString(strings.ToUpper(cell)) {
			labelish++
			continue
		}
		return false
	}
	return labelish >= 2
}

func (s *HTMLTableSource) buildRow(cells, header []string, pageURL string) (event.RawCandidate, bool) {
	var (
		areaParts   []string
		reasonParts []string
		feeder      string
		start, end  string
		date        string
		startTime   string
		endTime     string
	)

	for idx, value := range cells {
		if value == "" || idx >= len(header) {
			continue
		}
		label := nonAlphaRe.ReplaceAllString(strings.ToLower(header[idx]), " ")
		switch {
		case strings.Contains(label, "feeder"):
			feeder = value
		case strings.Contains(label, "sub division"), strings.Contains(label, "subdivision"),
			strings.Contains(label, "area"), strings.Contains(label, "locality"), strings.Contains(label, "town"):
			areaParts = append(areaParts, value)
		case strings.Contains(label, "division"), strings.Contains(label, "circle"):
			if !looksLikeFeederValue(value) {
				areaParts = append(areaParts, value)
			}
		case strings.Contains(label, "shutdown"), strings.Contains(label, "date"):
			if date == "" {
				date = value
			}
		case strings.Contains(label, "start"), strings.Contains(label, "from"):
			if startTime == "" {
				startTime = value
			}
		case strings.Contains(label, "end"), strings.Contains(label, "to"):
			if endTime == "" {
				endTime = value
			}
		case strings.Contains(label, "reason"), strings.Contains(label, "remarks"),
			strings.Contains(label, "purpose"), strings.Contains(label, "work"):
			reasonParts = append(reasonParts, value)
		}
	}

	// Positional fallback for headerless tables.
	if feeder == "" && len(cells) > 1 {
		feeder = cells[1]
	}
	if len(areaParts) == 0 && len(cells) > 0 {
		areaParts = append(areaParts, cells[0])
	}
	if start == "" && len(cells) > 2 && looksLikeDateTime(cells[2]) {
		start = cells[2]
	}
	if end == "" && len(cells) > 3 && looksLikeDateTime(cells[3]) {
		end = cells[3]
	}
	if len(reasonParts) == 0 && len(cells) > 4 {
		reasonParts = append(reasonParts, cells[4])
	}

	if date != "" && startTime != "" {
		start = combineDateTime(date, startTime)
	} else if start == "" && startTime != "" {
		start = normalizeTimeValue(startTime)
	}
	if date != "" && endTime != "" {
		end = combineDateTime(date, endTime)
	} else if end == "" && endTime != "" {
		end = normalizeTimeValue(endTime)
	}

	area := joinAreaParts(areaParts)
	reason := strings.TrimSpace(strings.Join(reasonParts, " "))

	if area == "" && feeder == "" {
		return event.RawCandidate{}, false
	}
	if start == "" {
		return event.RawCandidate{}, false
	}

	return event.RawCandidate{
		Area:       area,
		Feeder:     feeder,
		Start:      start,
		End:        end,
		Type:       "scheduled",
		Reason:     reason,
		Source:     s.Name(),
		URL:        pageURL,
		Confidence: s.confidence,
	}, true
}
