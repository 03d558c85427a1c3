package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"car-scout/models"
	"car-scout/utils"
)

const topRankedCount = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarizes a ranking pass for the terminal report.
func (s *InsightService) Generate(rr *models.RankReport) *models.MarketReport {
	report := &models.MarketReport{
		ListingsByMake: make(map[string]int),
	}
	if rr == nil {
		return report
	}

	report.TotalListings = len(rr.Results)
	report.Excluded = len(rr.Excluded)
	report.Unmatched = rr.Unmatched
	report.InsufficientData = rr.InsufficientData

	var priced []*models.Listing
	for _, r := range rr.Results {
		l := r.Listing
		if l == nil {
			continue
		}
		if l.Price > 0 {
			priced = append(priced, l)
		}
		if mk := VectorizeListing(l).Make; mk != "" {
			report.ListingsByMake[mk]++
		}
	}

	// Price stats (only listings with price > 0)
	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, l := range priced {
			total += l.Price
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round(total/float64(len(priced)), 2)
	}

	// Results are already in rank order.
	n := min(topRankedCount, len(rr.Results))
	report.TopRanked = append([]models.RankedResult(nil), rr.Results[:n]...)

	return report
}

// Print renders r to w.
func (s *InsightService) Print(w io.Writer, r *models.MarketReport) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	title := color.New(color.FgMagenta, color.Bold)
	heading := color.New(color.FgYellow, color.Bold)
	bold := color.New(color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	title.Fprintf(w, "\n%s\n", sep)
	title.Fprintf(w, "  USED CAR MARKET REPORT\n")
	title.Fprintf(w, "%s\n\n", sep)

	// Overview
	heading.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Ranked listings      : %s\n", bold.Sprint(r.TotalListings))
	fmt.Fprintf(w, "  Excluded             : %s\n", bold.Sprint(r.Excluded))
	fmt.Fprintf(w, "  Unmatched            : %s\n", bold.Sprint(r.Unmatched))
	fmt.Fprintf(w, "  Insufficient data    : %s\n", bold.Sprint(r.InsufficientData))
	fmt.Fprintln(w)

	// Price Stats
	heading.Fprintf(w, "  Price Statistics\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : %s\n", good.Sprintf("£%.0f", r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : %s\n", good.Sprintf("£%.0f", r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : %s\n", good.Sprintf("£%.0f", r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		heading.Fprintf(w, "  Most Expensive Listing\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 56))
		fmt.Fprintf(w, "  Location : %s\n", r.MostExpensive.Location)
		fmt.Fprintf(w, "  Price    : %s\n", bad.Sprintf("£%.0f", r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	heading.Fprintf(w, "  Top %d Ranked Listings\n", topRankedCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRanked) == 0 {
		fmt.Fprintf(w, "  No ranked listings\n")
	} else {
		for _, res := range r.TopRanked {
			rel := LabelUnknown
			if res.Reliability.Scored() {
				rel = fmt.Sprintf("%.1f", res.Reliability.Overall)
			}
			fmt.Fprintf(w, "  %s %-34s %s  rel %-7s value %-9s\n",
				bold.Sprintf("%d.", res.Rank),
				truncate(res.Listing.Title, 34),
				good.Sprintf("%.3f", res.TotalScore),
				rel,
				res.Value.Category)
		}
	}
	fmt.Fprintln(w)

	heading.Fprintf(w, "  Listings by Make\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByMake) == 0 {
		fmt.Fprintf(w, "  No make data\n")
	} else {
		type makeCount struct {
			make  string
			count int
		}
		var makes []makeCount
		for mk, cnt := range r.ListingsByMake {
			makes = append(makes, makeCount{mk, cnt})
		}
		sort.Slice(makes, func(i, j int) bool {
			if makes[i].count != makes[j].count {
				return makes[i].count > makes[j].count
			}
			return makes[i].make < makes[j].make
		})
		for _, mc := range makes {
			bar := strings.Repeat("█", mc.count)
			fmt.Fprintf(w, "  %-24s %s (%d)\n", truncate(mc.make, 22), bar, mc.count)
		}
	}

	title.Fprintf(w, "\n%s\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
