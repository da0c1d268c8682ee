package source

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestHTMLTableSourceHeaderMapped(t *testing.T) {
	page := `<html><body><table>
		<tr><th>Sr</th><th>Division</th><th>Sub Division</th><th>Feeder Name</th>
			<th>Shutdown Date</th><th>Start Time</th><th>End Time</th><th>Reason</th></tr>
		<tr><td>1</td><td>Lahore</td><td>Gulberg</td><td>F-12</td>
			<td>05-09-2026</td><td>09:00</td><td>13:00</td><td>Cable work</td></tr>
	</table></body></html>`

	fetcher := &stubFetcher{pages: map[string]string{"https://lesco.gov.pk/sched": page}}
	src := NewHTMLTableSource("https://lesco.gov.pk/sched", nil, 0.9, fetcher, zap.NewNop())

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}

	item := items[0]
	if item.Area != "Lahore | Gulberg" {
		t.Errorf("area = %q", item.Area)
	}
	if item.Feeder != "F-12" {
		t.Errorf("feeder = %q", item.Feeder)
	}
	if item.Start != "2026-09-05 09:00" || item.End != "2026-09-05 13:00" {
		t.Errorf("times = %q / %q", item.Start, item.End)
	}
	if item.Reason != "Cable work" {
		t.Errorf("reason = %q", item.Reason)
	}
	if item.Source != "official" || item.Confidence != 0.9 || item.Type != "scheduled" {
		t.Errorf("metadata = %+v", item)
	}
	if src.ResolvedURL() != "https://lesco.gov.pk/sched" {
		t.Errorf("resolved = %q", src.ResolvedURL())
	}
}

func TestHTMLTableSourcePositionalFallback(t *testing.T) {
	// No header at all: columns fall back to area, feeder, start, end,
	// reason order.
	page := `<html><body><table>
		<tr><td>Gulberg</td><td>F-12</td><td>05-09-2026 09:00</td><td>05-09-2026 13:00</td><td>Maintenance</td></tr>
	</table></body></html>`

	fetcher := &stubFetcher{pages: map[string]string{"https://lesco.gov.pk/sched": page}}
	src := NewHTMLTableSource("https://lesco.gov.pk/sched", nil, 0.9, fetcher, zap.NewNop())

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}
	item := items[0]
	if item.Area != "Gulberg" || item.Feeder != "F-12" {
		t.Errorf("location = %q / %q", item.Area, item.Feeder)
	}
	if item.Start != "05-09-2026 09:00" || item.End != "05-09-2026 13:00" {
		t.Errorf("times = %q / %q", item.Start, item.End)
	}
	if item.Reason != "Maintenance" {
		t.Errorf("reason = %q", item.Reason)
	}
}

func TestHTMLTableSourceTriesFallbackURLs(t *testing.T) {
	page := `<html><body><table>
		<tr><th>Area</th><th>Feeder</th><th>Date</th><th>Start</th><th>End</th></tr>
		<tr><td>Model Town</td><td>F-7</td><td>06-09-2026</td><td>10:00</td><td>12:00</td></tr>
	</table></body></html>`

	fetcher := &stubFetcher{pages: map[string]string{"https://lesco.gov.pk/new-sched": page}}
	src := NewHTMLTableSource("https://lesco.gov.pk/old-sched",
		[]string{"https://lesco.gov.pk/new-sched"}, 0.9, fetcher, zap.NewNop())

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}
	if src.ResolvedURL() != "https://lesco.gov.pk/new-sched" {
		t.Errorf("resolved = %q", src.ResolvedURL())
	}
}

func TestHTMLTableSourceSkipsEmptyTables(t *testing.T) {
	// The first table is navigation chrome; the schedule is the second.
	page := `<html><body>
		<table><tr><td></td></tr></table>
		<table>
			<tr><th>Area</th><th>Feeder</th><th>Date</th><th>Start</th><th>End</th></tr>
			<tr><td>Gulberg</td><td>F-12</td><td>05-09-2026</td><td>09:00</td><td>13:00</td></tr>
		</table>
	</body></html>`

	fetcher := &stubFetcher{pages: map[string]string{"https://lesco.gov.pk/sched": page}}
	src := NewHTMLTableSource("https://lesco.gov.pk/sched", nil, 0.9, fetcher, zap.NewNop())

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Area != "Gulberg" {
		t.Fatalf("items = %+v", items)
	}
}

func TestHTMLTableSourceNoRowsNoError(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://lesco.gov.pk/sched": "<html><body>nothing here</body></html>"}}
	src := NewHTMLTableSource("https://lesco.gov.pk/sched", nil, 0.9, fetcher, zap.NewNop())

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %+v", items)
	}
}

func TestHTMLTableSourceAllPagesFail(t *testing.T) {
	src := NewHTMLTableSource("https://lesco.gov.pk/sched",
		[]string{"https://lesco.gov.pk/other"}, 0.9, &stubFetcher{}, zap.NewNop())

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("want error when every page fails")
	}
}

func TestLooksLikeHeaderValues(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  bool
	}{
		{"keyword labels", []string{"Area", "Feeder Name", "Shutdown Date"}, true},
		{"data row", []string{"1", "Gulberg", "F-12"}, false},
		{"multi digit rejects", []string{"Area", "Feeder", "05-09-2026"}, false},
		{"single label insufficient", []string{"Area", ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeHeaderValues(tt.cells); got != tt.want {
				t.Fatalf("looksLikeHeaderValues(%v) = %v", tt.cells, got)
			}
		})
	}
}
