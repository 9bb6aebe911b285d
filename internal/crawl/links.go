package crawl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is the site every relative link is resolved against.
const DefaultBaseURL = "https://www.basketball-reference.com"

// Selectors for the fragments kept from each page type.
const (
	SeasonIndexSelector = "#content .filter"
	ScheduleSelector    = "#all_schedule"
	BoxScoreSelector    = "#content"
)

// SeasonIndexURL returns the league schedule index for a season.
func SeasonIndexURL(baseURL string, season int) string {
	return fmt.Sprintf("%s/leagues/NBA_%d_games.html", strings.TrimRight(baseURL, "/"), season)
}

// ScheduleLinks returns every link in a season index fragment, one per
// month of the season.
func ScheduleLinks(baseURL, html string) ([]string, error) {
	return extractLinks(baseURL, html, func(string) bool { return true })
}

// BoxScoreLinks returns the box-score page links found in a schedule page.
func BoxScoreLinks(baseURL, html string) ([]string, error) {
	return extractLinks(baseURL, html, func(href string) bool {
		return strings.Contains(href, "boxscore") && strings.Contains(href, ".html")
	})
}

// FileName is the cache file name for a page URL: its last path segment.
func FileName(pageURL string) string {
	if i := strings.LastIndex(pageURL, "/"); i >= 0 {
		return pageURL[i+1:]
	}
	return pageURL
}

func extractLinks(baseURL, html string, keep func(string) bool) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !keep(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links, nil
}
