package search

// Mode names a search strategy.
type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeVector  Mode = "vector"
	ModeSimilar Mode = "similar"
	ModeHybrid  Mode = "hybrid"
)

// Doc represents the searchable metadata of one workflow.
type Doc struct {
	WorkflowID   string
	Filename     string
	Name         string
	Description  string
	Categories   []string
	Integrations []string
	SearchText   string
}

// key is the result identity: the workflow id, else the filename.
func (d Doc) key() string {
	if d.WorkflowID != "" {
		return d.WorkflowID
	}
	return d.Filename
}

// Result represents one matched workflow.
type Result struct {
	Rank        int     `json:"rank"`
	Score       float64 `json:"score"`
	WorkflowID  string  `json:"workflow_id"`
	Filename    string  `json:"filename"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Why         string  `json:"why"`
	Snippet     string  `json:"snippet,omitempty"`
}

// Key is the identity used to deduplicate merged results.
func (r Result) Key() string {
	if r.WorkflowID != "" {
		return r.WorkflowID
	}
	return r.Filename
}

// Response is a ranked result list. Degraded is set when vector search was requested
// but no vector space is available, so keyword results were returned instead.
type Response struct {
	Mode     Mode     `json:"mode"`
	Degraded bool     `json:"degraded"`
	Results  []Result `json:"results"`
}
