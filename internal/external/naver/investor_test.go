package naver

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestParseInvestorHTML(t *testing.T) {
	// Sample HTML from Naver Finance investor page
	sampleHTML := `
		<html>
		<body>
		<table class="type2">
			<tr><th>Header</th></tr>
		</table>
		<table class="type2">
			<tr>
				<td>2024.01.16</td>
				<td>73,000</td>
				<td>+500</td>
				<td>+0.69%</td>
				<td>1,200,000</td>
				<td>-60,000</td>
				<td>+40,000</td>
			</tr>
			<tr>
				<td>2024.01.15</td>
				<td>72,500</td>
				<td>+500</td>
				<td>+0.69%</td>
				<td>1,000,000</td>
				<td>+50,000</td>
				<td>+30,000</td>
			</tr>
			<tr>
				<td>invalid date</td>
				<td>73,000</td>
			</tr>
		</table>
		<td class="pgRR"><a href="#">맨뒤</a></td>
		</body>
		</html>
	`

	rows, hasMore := parseInvestorHTML(mustDoc(t, sampleHTML), "005930")

	if len(rows) != 2 {
		t.Fatalf("parseInvestorHTML() got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.StockCode != "005930" {
		t.Errorf("StockCode = %s, want 005930", first.StockCode)
	}
	if want := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC); !first.TradeDate.Equal(want) {
		t.Errorf("TradeDate = %v, want %v", first.TradeDate, want)
	}
	if first.InstitutionNet != -60000 {
		t.Errorf("InstitutionNet = %d, want -60000", first.InstitutionNet)
	}
	if first.ForeignNet != 40000 {
		t.Errorf("ForeignNet = %d, want 40000", first.ForeignNet)
	}
	if !hasMore {
		t.Error("parseInvestorHTML() hasMore = false, want true")
	}
}

func TestParseInvestorHTMLNoTables(t *testing.T) {
	rows, hasMore := parseInvestorHTML(mustDoc(t, "<html><body></body></html>"), "005930")

	if len(rows) != 0 {
		t.Errorf("parseInvestorHTML() got %d rows, want 0", len(rows))
	}
	if hasMore {
		t.Error("parseInvestorHTML() hasMore = true, want false")
	}
}
