package analyzer

// Report represents the complete on-page analysis of a webpage
type Report struct {
	URL        string           `json:"url"`
	Tags       []TagReport      `json:"tags"`
	Frequency  []FrequencyEntry `json:"frequency"`
	Digrams    []FrequencyEntry `json:"digrams"`
	Trigrams   []FrequencyEntry `json:"trigrams"`
	CheckLinks []LinkResult     `json:"check_links"`
	Article    Article          `json:"article"`
}

// TagReport lists the keywords found in the elements matched by one selector
type TagReport struct {
	Tag     string `json:"tag"`
	Count   int    `json:"count"`
	Content string `json:"content"`
}

// FrequencyEntry is one recurring term or n-gram of a page
type FrequencyEntry struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
	Rate  string `json:"rate"`
}

// Probe statuses that are not HTTP status codes
const (
	StatusTimeout     = "TIMEOUT"
	StatusUnreachable = "UNREACHABLE"
	StatusUnknown     = "UNKNOWN"
)

// LinkResult is the outcome of probing one link of a page.
// Status holds the decimal status code, or one of the sentinel statuses when no
// response was received.
type LinkResult struct {
	URL    string `json:"url"`
	Code   int    `json:"code,omitempty"`
	Status string `json:"status"`
}

// Healthy reports whether the link answered with 200 OK.
func (r LinkResult) Healthy() bool {
	return r.Code == 200
}

type Article struct {
	Title       string `json:"title"`
	Description string `json:"desc"`
	Text        string `json:"text"`
	TopImage    string `json:"top_image,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Progress is emitted while an analysis runs. Status is a completion percentage.
type Progress struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}
