package source

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Bulletin PDFs have no stable URL; the portal links them from a
// rotating set of listing pages. The finder walks those pages with an
// explicit work queue, a visited set and a remaining-depth counter so
// the crawl is bounded against link cycles.
const (
	maxDiscoveryDepth     = 2
	maxFollowLinksPerPage = 12
)

var (
	pdfURLRe        = regexp.MustCompile(`(?i)\.pdf(?:$|[?#])`)
	absolutePDFRe   = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.pdf(?:\?[^\s"'<>]*)?`)
	quotedPDFRe     = regexp.MustCompile(`(?i)["']\s*([^"']+\.pdf(?:\?[^"']*)?)\s*["']`)
	loosePDFRe      = regexp.MustCompile(`(?i)(?:^|["'\s(>])((?:https?://|/|\.{1,2}/|~/)?[^"'<>]*?\.pdf(?:\?[^"'<>\s]*)?)`)
	metaRefreshRe   = regexp.MustCompile(`(?i)url\s*=\s*([^;]+)`)
	skipSchemeRe    = regexp.MustCompile(`(?i)^(?:javascript|mailto|tel):`)
	ymdScoreRe      = regexp.MustCompile(`(20\d{2})[-_/. ]?(\d{1,2})[-_/. ]?(\d{1,2})`)
	dmyScoreRe      = regexp.MustCompile(`(\d{1,2})[-_/. ]?(\d{1,2})[-_/. ]?(20\d{2})`)
	dmyShortScoreRe = regexp.MustCompile(`(\d{1,2})[-_/. ]?(\d{1,2})[-_/. ]?(\d{2})`)
)

var pdfMagic = []byte("%PDF")

// pdfFinder resolves a working bulletin URL from a seed, fallbacks and
// default listing pages.
type pdfFinder struct {
	fetcher Fetcher
	logger  *zap.Logger
	depth   int
	perPage int
}

func newPDFFinder(fetcher Fetcher, logger *zap.Logger) *pdfFinder {
	return &pdfFinder{fetcher: fetcher, logger: logger, depth: maxDiscoveryDepth, perPage: maxFollowLinksPerPage}
}

func looksLikePDFURL(raw string) bool { return pdfURLRe.MatchString(raw) }

// Resolve returns the first URL that either names a PDF directly or
// serves PDF magic bytes, or "" when the bounded crawl exhausts.
func (f *pdfFinder) Resolve(ctx context.Context, seed string, fallbacks, defaults []string) string {
	if looksLikePDFURL(seed) {
		return seed
	}

	type workItem struct {
		url       string
		remaining int
	}

	var queue []workItem
	visited := make(map[string]bool)
	enqueue := func(u string, remaining int) {
		u = strings.TrimSpace(u)
		if u == "" || visited[u] {
			return
		}
		visited[u] = true
		queue = append(queue, workItem{url: u, remaining: remaining})
	}

	enqueue(seed, f.depth)
	for _, fb := range fallbacks {
		enqueue(fb, f.depth)
	}
	for _, def := range defaults {
		enqueue(def, f.depth)
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if looksLikePDFURL(item.url) {
			return item.url
		}

		body, err := f.fetcher.Get(ctx, item.url, nil)
		if err != nil || len(bytes.TrimSpace(body)) == 0 {
			continue
		}
		if bytes.HasPrefix(body, pdfMagic) {
			return item.url
		}

		if links := extractPDFLinks(body, item.url); len(links) > 0 {
			return links[0]
		}

		if item.remaining <= 0 {
			continue
		}
		for _, link := range extractFollowableLinks(body, item.url, f.perPage) {
			enqueue(link, item.remaining-1)
		}
	}
	return ""
}

// extractPDFLinks collects every PDF-looking reference on a page, from
// markup attributes first and a raw text scan as last resort, ranked
// most-recent-looking first.
func extractPDFLinks(body []byte, baseURL string) []string {
	var links []string
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || !looksLikePDFURL(candidate) {
			return
		}
		if abs := absolutizeURL(candidate, baseURL); abs != "" {
			links = append(links, abs)
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		attrs := []string{"href", "src", "data", "data-href", "data-url", "data-src", "data-file", "data-download", "data-latest", "data-latest-pdf"}
		doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
			for _, attr := range attrs {
				if v, ok := sel.Attr(attr); ok {
					add(v)
				}
			}
			if onclick, ok := sel.Attr("onclick"); ok && onclick != "" {
				for _, candidate := range extractPDFURLsFromText(onclick) {
					add(candidate)
				}
			}
		})
		doc.Find(`meta[http-equiv]`).Each(func(_ int, sel *goquery.Selection) {
			if !strings.EqualFold(sel.AttrOr("http-equiv", ""), "refresh") {
				return
			}
			for _, m := range metaRefreshRe.FindAllStringSubmatch(sel.AttrOr("content", ""), -1) {
				add(strings.Trim(m[1], "\"' \t\r\n"))
			}
		})
	}

	if len(links) == 0 {
		for _, candidate := range extractPDFURLsFromText(string(body)) {
			add(candidate)
		}
	}

	links = dedupeStrings(links)
	sort.SliceStable(links, func(i, j int) bool {
		si, sj := scorePDFCandidate(links[i]), scorePDFCandidate(links[j])
		if si == sj {
			return links[i] > links[j]
		}
		return si > sj
	})
	return links
}

// extractFollowableLinks returns same-host anchor targets worth
// crawling, capped at perPage.
func extractFollowableLinks(body []byte, baseURL string, perPage int) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || skipSchemeRe.MatchString(href) {
			return
		}
		abs := absolutizeURL(href, baseURL)
		if abs == "" || !shouldFollowLink(abs, baseURL) {
			return
		}
		links = append(links, abs)
	})

	links = dedupeStrings(links)
	if len(links) > perPage {
		links = links[:perPage]
	}
	return links
}

func shouldFollowLink(candidate, baseURL string) bool {
	if looksLikePDFURL(candidate) {
		return true
	}
	cu, err := url.Parse(candidate)
	if err != nil || cu.Scheme == "" {
		return false
	}
	bu, err := url.Parse(baseURL)
	if err != nil || bu.Host == "" || cu.Host == "" {
		return true
	}
	return strings.EqualFold(cu.Host, bu.Host)
}

// absolutizeURL resolves href against the page URL, collapsing dot
// segments and percent-encoding spaces.
func absolutizeURL(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(strings.ReplaceAll(href, " ", "%20"))
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// extractPDFURLsFromText scans raw markup or script text for anything
// that reads like a PDF reference.
func extractPDFURLsFromText(text string) []string {
	var found []string
	for _, m := range absolutePDFRe.FindAllString(text, -1) {
		if c := cleanExtractedURL(m); c != "" && looksLikePDFURL(c) {
			found = append(found, c)
		}
	}
	for _, m := range quotedPDFRe.FindAllStringSubmatch(text, -1) {
		if c := cleanExtractedURL(m[1]); c != "" && looksLikePDFURL(c) {
			found = append(found, c)
		}
	}
	for _, m := range loosePDFRe.FindAllStringSubmatch(text, -1) {
		if c := cleanExtractedURL(m[1]); c != "" && looksLikePDFURL(c) {
			found = append(found, c)
		}
	}
	return dedupeStrings(found)
}

func cleanExtractedURL(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	candidate = strings.Trim(candidate, "\"'`")
	candidate = strings.TrimSpace(candidate)
	candidate = strings.TrimLeft(candidate, "\"'(<[{ ")
	candidate = strings.TrimRight(candidate, "\"')>]}.;:, ")
	return strings.TrimSpace(candidate)
}

// scorePDFCandidate ranks links by an embedded date converted to a
// yyyymmdd sort key; undateable links score zero.
func scorePDFCandidate(rawURL string) int {
	if m := ymdScoreRe.FindStringSubmatch(rawURL); m != nil {
		return dateKey(m[1], m[2], m[3])
	}
	if m := dmyScoreRe.FindStringSubmatch(rawURL); m != nil {
		return dateKey(m[3], m[2], m[1])
	}
	if m := dmyShortScoreRe.FindStringSubmatch(rawURL); m != nil {
		year := atoiSafe(m[3])
		if year >= 70 {
			year += 1900
		} else {
			year += 2000
		}
		return year*10000 + atoiSafe(m[2])*100 + atoiSafe(m[1])
	}
	return 0
}

func dateKey(year, month, day string) int {
	return atoiSafe(year)*10000 + atoiSafe(month)*100 + atoiSafe(day)
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
