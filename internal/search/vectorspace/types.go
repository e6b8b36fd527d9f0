package vectorspace

// Artifact file names inside the vector directory.
const (
	ModelFile   = "vectorizer.json"
	VectorFile  = "vectors.f32"
	EntriesFile = "workflow_ids.jsonl"

	ModelID      = "tfidf"
	IndexVersion = 1
)

// Params are the fitting parameters of the term-weighting model.
type Params struct {
	MaxFeatures int     `json:"max_features"`
	MinDF       int     `json:"min_df"`
	MaxDF       float64 `json:"max_df"`
	NgramMin    int     `json:"ngram_min"`
	NgramMax    int     `json:"ngram_max"`
	StopWords   string  `json:"stop_words"`
}

// DefaultParams returns the standard fitting parameters.
func DefaultParams() Params {
	return Params{
		MaxFeatures: 1000,
		MinDF:       1,
		MaxDF:       0.9,
		NgramMin:    1,
		NgramMax:    2,
		StopWords:   "english",
	}
}

// Manifest describes a fitted vector space and how to interpret its files.
type Manifest struct {
	IndexVersion int       `json:"index_version"`
	CreatedAt    string    `json:"created_at"`
	ModelID      string    `json:"model_id"`
	Dim          int       `json:"dim"`
	Normalize    bool      `json:"normalize"`
	Params       Params    `json:"params"`
	VectorFile   string    `json:"vector_file"`
	EntriesFile  string    `json:"entries_file"`
	Vocabulary   []string  `json:"vocabulary"`
	IDF          []float64 `json:"idf"`
}

// Entry represents one document row in workflow_ids.jsonl. Row i matches vector row i.
type Entry struct {
	WorkflowID  string   `json:"workflow_id"`
	Filename    string   `json:"filename"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	SearchText  string   `json:"search_text"`
}

// Space is a fitted vector space: the model plus one vector per document.
type Space struct {
	Manifest Manifest
	Entries  []Entry
	Vectors  []float32

	columns map[string]int
}

// Len returns the number of document rows.
func (s *Space) Len() int {
	return len(s.Entries)
}

// Row returns the vector of document i.
func (s *Space) Row(i int) []float32 {
	d := s.Manifest.Dim
	return s.Vectors[i*d : (i+1)*d]
}

// IndexOf returns the row of the document with the given workflow id, or -1.
func (s *Space) IndexOf(workflowID string) int {
	for i, e := range s.Entries {
		if e.WorkflowID == workflowID {
			return i
		}
	}
	return -1
}

// indexColumns builds the term lookup. It runs once, before the space is shared.
func (s *Space) indexColumns() {
	s.columns = make(map[string]int, len(s.Manifest.Vocabulary))
	for i, t := range s.Manifest.Vocabulary {
		s.columns[t] = i
	}
}
