package naver

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

var kst = time.FixedZone("KST", 9*60*60)

type newsGroup struct {
	Total int           `json:"total"`
	Items []newsAPIItem `json:"items"`
}

type newsAPIItem struct {
	OfficeName string `json:"officeName"`
	Datetime   string `json:"datetime"` // 200601021504
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// FetchNews fetches the latest n stock news items (most-recent-first)
// from the mobile news API.
func (c *Client) FetchNews(ctx context.Context, stockCode string, n int) ([]NewsArticle, error) {
	fullURL := fmt.Sprintf("%s/api/news/stock/%s?pageSize=%d&page=1", c.mobileURL, stockCode, n)

	var groups []newsGroup
	if err := c.fetchJSON(ctx, fullURL, &groups); err != nil {
		return nil, err
	}

	var articles []NewsArticle
	for _, g := range groups {
		for _, item := range g.Items {
			published, _ := time.ParseInLocation("200601021504", item.Datetime, kst)
			articles = append(articles, NewsArticle{
				Title:       cleanText(item.Title),
				Body:        cleanText(item.Body),
				Office:      item.OfficeName,
				PublishedAt: published,
			})
		}
	}

	sortNewest(articles)
	if len(articles) > n {
		articles = articles[:n]
	}
	return articles, nil
}

// FetchMarketHeadlines scrapes the main-news list for the market overview
func (c *Client) FetchMarketHeadlines(ctx context.Context, n int) ([]string, error) {
	doc, err := c.fetchHTML(ctx, "/news/mainnews.naver", nil)
	if err != nil {
		return nil, err
	}

	var headlines []string
	doc.Find(".mainNewsList li .articleSubject a, ul.newsList li dd.articleSubject a").Each(func(i int, s *goquery.Selection) {
		if len(headlines) >= n {
			return
		}
		if title := cleanText(s.Text()); title != "" {
			headlines = append(headlines, title)
		}
	})
	return headlines, nil
}

func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func sortNewest(articles []NewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
