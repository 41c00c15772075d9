package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// documentKeywords returns the keyword stream of every element except scripts and
// styles, in document order.
func documentKeywords(doc *goquery.Document) []string {
	var keywords []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "script", "style":
			return
		}
		keywords = append(keywords, ExtractKeywords(directText(s.Nodes[0]))...)
	})
	return keywords
}

// termCounter counts terms while remembering the order they were first seen in.
type termCounter struct {
	order  []string
	counts map[string]int
	total  int
}

func newTermCounter() *termCounter {
	return &termCounter{counts: make(map[string]int)}
}

func (c *termCounter) add(term string) {
	if _, seen := c.counts[term]; !seen {
		c.order = append(c.order, term)
	}
	c.counts[term]++
	c.total++
}

// countNGrams counts every full window of size consecutive keywords.
func countNGrams(keywords []string, size int) *termCounter {
	counter := newTermCounter()
	if size <= 1 {
		for _, kw := range keywords {
			counter.add(kw)
		}
		return counter
	}
	for i := 0; i+size <= len(keywords); i++ {
		counter.add(strings.Join(keywords[i:i+size], " "))
	}
	return counter
}

// Frequency returns the terms of the page that occur more than once, most frequent
// first. ngramSize selects single keywords (1) or phrases of that many keywords.
// Rates are percentages of all terms of the same size, recurring or not.
func Frequency(doc *goquery.Document, ngramSize int) []FrequencyEntry {
	counter := countNGrams(documentKeywords(doc), ngramSize)
	if counter.total == 0 {
		return []FrequencyEntry{}
	}

	entries := make([]FrequencyEntry, 0, len(counter.order))
	for _, term := range counter.order {
		count := counter.counts[term]
		if count <= 1 {
			continue
		}
		entries = append(entries, FrequencyEntry{
			Term:  term,
			Count: count,
			Rate:  fmt.Sprintf("%.2f%%", float64(count)/float64(counter.total)*100),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}
