package source

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/event"
	"github.com/gridwatch/shutdown-crawler/internal/pdftext"
)

// PDFSource reads the shutdown bulletin PDFs the utility publishes
// without a stable URL. The configured seed is used directly when it
// already names a PDF; otherwise the finder crawls fallback and
// default listing pages for one. Discovery exhaustion is not an error,
// the source just contributes nothing that run.
type PDFSource struct {
	url        string
	fallbacks  []string
	defaults   []string
	confidence float64
	fetcher    Fetcher
	finder     *pdfFinder
	logger     *zap.Logger

	resolvedURL string
}

func NewPDFSource(url string, fallbacks, defaults []string, confidence float64, fetcher Fetcher, logger *zap.Logger) *PDFSource {
	clean := make([]string, 0, len(fallbacks))
	for _, f := range fallbacks {
		if f = strings.TrimSpace(f); f != "" {
			clean = append(clean, f)
		}
	}
	return &PDFSource{
		url:        strings.TrimSpace(url),
		fallbacks:  clean,
		defaults:   defaults,
		confidence: confidence,
		fetcher:    fetcher,
		finder:     newPDFFinder(fetcher, logger),
		logger:     logger,
	}
}

func (s *PDFSource) Name() string { return "pdf" }

// ResolvedURL reports the bulletin that produced candidates on the
// last successful Fetch.
func (s *PDFSource) ResolvedURL() string {
	if s.resolvedURL != "" {
		return s.resolvedURL
	}
	return s.url
}

func (s *PDFSource) Fetch(ctx context.Context) ([]event.RawCandidate, error) {
	pdfURL := s.finder.Resolve(ctx, s.url, s.fallbacks, s.defaults)
	if pdfURL == "" {
		s.logger.Info("no bulletin pdf discovered")
		return nil, nil
	}

	headers := http.Header{}
	headers.Set("Accept", "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8")
	binary, err := s.fetcher.Get(ctx, pdfURL, headers)
	if err != nil || len(binary) == 0 {
		s.logger.Warn("bulletin download failed", zap.String("url", pdfURL), zap.Error(err))
		return nil, nil
	}

	text := pdftext.Extract(binary)
	if text == "" {
		return nil, nil
	}
	s.resolvedURL = pdfURL

	records := parsePDFText(text)
	items := make([]event.RawCandidate, 0, len(records))
	for _, rec := range records {
		items = append(items, event.RawCandidate{
			Area:       rec.Area,
			Feeder:     rec.Feeder,
			Start:      rec.Start,
			End:        rec.End,
			Reason:     rec.Reason,
			Source:     s.Name(),
			URL:        s.resolvedURL,
			Confidence: s.confidence,
		})
	}
	return items, nil
}
