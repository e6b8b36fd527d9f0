package workflow

import "github.com/google/uuid"

// Complexity is a coarse structural difficulty tier.
type Complexity string

const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// DefaultCategory is used when no category keyword matches.
const DefaultCategory = "general"

// QualityChecks records the outcome of each independent quality check.
type QualityChecks struct {
	Documentation      bool `json:"documentation"`
	CredentialHygiene  bool `json:"credential_hygiene"`
	ErrorHandling      bool `json:"error_handling"`
	Organization       bool `json:"organization"`
	ModernIntegrations bool `json:"modern_integrations"`
	Parameterization   bool `json:"parameterization"`
}

// Metadata is the derived side-record attached to a workflow document.
type Metadata struct {
	WorkflowID      string         `json:"workflow_id,omitempty"`
	Name            string         `json:"workflow_name"`
	Description     string         `json:"description"`
	Categories      []string       `json:"categories"`
	Integrations    []string       `json:"integrations"`
	Complexity      Complexity     `json:"complexity"`
	QualityScore    int            `json:"quality_score"`
	QualityChecks   *QualityChecks `json:"quality_checks,omitempty"`
	NodeCount       int            `json:"node_count"`
	ConnectionCount int            `json:"connection_count"`
	HasTrigger      bool           `json:"has_trigger"`
	HasCredentials  bool           `json:"has_credentials"`
	UsedCount       int            `json:"used_count,omitempty"`
	PopularityScore int            `json:"popularity_score,omitempty"`
	SourceURL       string         `json:"source_url"`
	ScrapedAt       string         `json:"scraped_at"`
}

// Document is a stored workflow: its identity, original content and metadata.
// Content and Metadata are only merged when the document is serialized.
type Document struct {
	Filename string
	Content  Content
	Metadata *Metadata
}

// ID returns the persistent workflow id derived from the document's filename.
func (d *Document) ID() string {
	return ID(d.Filename)
}

// ID derives the persistent workflow id for filename (UUIDv5, DNS namespace).
func ID(filename string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(filename)).String()
}
