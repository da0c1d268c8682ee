package ingest

import (
	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/config"
	"github.com/gridwatch/shutdown-crawler/internal/source"
)

// BuildSources assembles the enabled adapters in configuration order.
// An absent or disabled source is skipped, not an error.
func BuildSources(cfg *config.Config, fetcher source.Fetcher, manual source.ManualReader, logger *zap.Logger) []source.Source {
	var sources []source.Source
	for _, name := range config.SourceOrder {
		sc, ok := cfg.Sources[name]
		if !ok || !sc.Enabled {
			continue
		}
		switch name {
		case "official":
			sources = append(sources, source.NewHTMLTableSource(sc.URL, sc.Fallbacks, sc.Confidence, fetcher, logger))
		case "ccms":
			sources = append(sources, source.NewHybridSource(sc.URL, sc.Confidence, fetcher, logger))
		case "facebook":
			sources = append(sources, source.NewNoticeSource(sc.URL, sc.Confidence, fetcher, logger))
		case "pdf":
			sources = append(sources, source.NewPDFSource(sc.URL, sc.Fallbacks, sc.Discover, sc.Confidence, fetcher, logger))
		case "manual":
			if manual != nil {
				sources = append(sources, source.NewManualSource(manual))
			}
		}
	}
	return sources
}
