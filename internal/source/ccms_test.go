package source

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func newCCMS(body string) *HybridSource {
	fetcher := &stubFetcher{pages: map[string]string{"https://ccms.pitc.com.pk/outages": body}}
	return NewHybridSource("https://ccms.pitc.com.pk/outages", 0.8, fetcher, zap.NewNop())
}

func TestHybridSourceJSONArray(t *testing.T) {
	body := `[{"SubDivision":"Gulberg","FeederName":"F-12","ShutdownDate":"05-09-2026",
		"StartTime":"09:00","EndTime":"13:00","Reason":"Maintenance work"}]`

	items, err := newCCMS(body).Fetch(context.Background())
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
	if item.Start != "2026-09-05 09:00" || item.End != "2026-09-05 13:00" {
		t.Errorf("times = %q / %q", item.Start, item.End)
	}
	if item.Type != "maintenance" {
		t.Errorf("type = %q", item.Type)
	}
	if item.Source != "ccms" || item.Confidence != 0.8 {
		t.Errorf("metadata = %+v", item)
	}
}

func TestHybridSourceJSONContainerShapes(t *testing.T) {
	row := `{"Area":"Model Town","Feeder":"F-7","start":"2026-09-06 10:00"}`
	tests := []struct {
		name string
		body string
	}{
		{"data key", `{"data":[` + row + `]}`},
		{"capitalized key", `{"Data":[` + row + `]}`},
		{"results key", `{"results":[` + row + `]}`},
		{"unknown key with list", `{"outages":[` + row + `]}`},
		{"single object wrap", row},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := newCCMS(tt.body).Fetch(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(items) != 1 {
				t.Fatalf("got %d items: %+v", len(items), items)
			}
			if items[0].Area != "Model Town" || items[0].Start != "2026-09-06 10:00" {
				t.Errorf("item = %+v", items[0])
			}
		})
	}
}

func TestHybridSourceEndStaysEmptyWithoutEndTime(t *testing.T) {
	// A recycled shutdown date with no end time must not fabricate a
	// midnight end.
	body := `[{"Area":"Gulberg","FeederName":"F-12","ShutdownDate":"05-09-2026","StartTime":"09:00"}]`

	items, err := newCCMS(body).Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}
	if items[0].End != "" {
		t.Errorf("end = %q, want empty", items[0].End)
	}
}

func TestHybridSourceNumericJSONValues(t *testing.T) {
	body := `[{"Area":"Kasur","FeederId":112,"start":"2026-09-06 10:00"}]`

	items, err := newCCMS(body).Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}
	if items[0].Feeder != "112" {
		t.Errorf("feeder = %q", items[0].Feeder)
	}
}

func TestHybridSourceHTMLFallback(t *testing.T) {
	body := `<html><body><table>
		<tr><th>Sub Division</th><th>Feeder</th><th>Shutdown Date</th>
			<th>Start Time</th><th>End Time</th><th>Reason</th></tr>
		<tr><td>Gulberg</td><td>F-12</td><td>05-09-2026</td><td>09:00</td><td>13:00</td><td>Tree trimming</td></tr>
	</table></body></html>`

	items, err := newCCMS(body).Fetch(context.Background())
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
	if item.Start != "2026-09-05 09:00" || item.End != "2026-09-05 13:00" {
		t.Errorf("times = %q / %q", item.Start, item.End)
	}
	if item.Reason != "Tree trimming" {
		t.Errorf("reason = %q", item.Reason)
	}
}

func TestHybridSourceHTMLHeaderlessGuessesColumns(t *testing.T) {
	body := `<html><body><table>
		<tr><td>1</td><td>Lahore</td><td>Gulberg</td><td>F-12</td><td>05-09-2026</td>
			<td>09:00</td><td>13:00</td><td>Scheduled</td><td>Dev work</td></tr>
	</table></body></html>`

	items, err := newCCMS(body).Fetch(context.Background())
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
	if item.Type != "Scheduled" || item.Reason != "Dev work" {
		t.Errorf("type/reason = %q / %q", item.Type, item.Reason)
	}
}

func TestHybridSourceSkipsRowsWithoutStart(t *testing.T) {
	body := `[{"Area":"Gulberg","FeederName":"F-12"}]`

	items, err := newCCMS(body).Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %+v", items)
	}
}

func TestHybridSourceFetchError(t *testing.T) {
	src := NewHybridSource("https://ccms.pitc.com.pk/outages", 0.8, &stubFetcher{}, zap.NewNop())
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("want error when fetch fails")
	}
}

func TestHeaderToKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sub Division", "SubDivision"},
		{"Feeder Name", "FeederName"},
		{"Shutdown Date", "ShutdownDate"},
		{"Start Time", "StartTime"},
		{"End Time", "EndTime"},
		{"Remarks", "Reason"},
		{"Shutdown Type", "ShutdownType"},
		{"Circle", "Circle"},
		{"Division", "Division"},
		{"Town", "Area"},
		{"Sr No", ""},
	}
	for _, tt := range tests {
		if got := headerToKey(tt.in); got != tt.want {
			t.Errorf("headerToKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
