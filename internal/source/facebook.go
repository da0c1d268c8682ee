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

// NoticeSource scrapes the utility's public PR page for free-text
// shutdown announcements. No login, no API; paragraphs are matched by
// keyword and mined for date or time patterns. Brittle by nature,
// hence the lowest confidence in the pipeline.
type NoticeSource struct {
	url        string
	confidence float64
	fetcher    Fetcher
	logger     *zap.Logger
}

var noticeDateTimeRe = regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2}|\d{1,2}[:.]\d{2}\s*(?:AM|PM)?)`)

const noticeReasonLimit = 160

func NewNoticeSource(url string, confidence float64, fetcher Fetcher, logger *zap.Logger) *NoticeSource {
	return &NoticeSource{url: strings.TrimSpace(url), confidence: confidence, fetcher: fetcher, logger: logger}
}

func (s *NoticeSource) Name() string { return "facebook" }

func (s *NoticeSource) Fetch(ctx context.Context) ([]event.RawCandidate, error) {
	body, err := s.fetcher.Get(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("facebook: fetch %s: %w", s.url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("facebook: parse: %w", err)
	}

	var items []event.RawCandidate
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := cleanText(p.Text())
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "shutdown") && !strings.Contains(lower, "load") {
			return
		}
		start := noticeDateTimeRe.FindString(text)
		items = append(items, event.RawCandidate{
			Start:      start,
			Type:       "scheduled",
			Reason:     truncateNotice(text),
			Source:     s.Name(),
			URL:        s.url,
			Confidence: s.confidence,
		})
	})
	return items, nil
}

func truncateNotice(text string) string {
	runes := []rune(text)
	if len(runes) <= noticeReasonLimit {
		return text
	}
	return string(runes[:noticeReasonLimit]) + "…"
}
