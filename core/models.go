package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for documents in the corpus.
// Document IDs are content-addressed so identical source records
// always map to the same document.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// StageName identifies one analysis stage within an orchestration run.
type StageName string

// The closed set of analysis stages. Adding a domain means adding a
// constant here and a task entry in the workflow registry.
const (
	StageCompanyCulture  StageName = "company_culture"
	StageWorkLifeBalance StageName = "work_life_balance"
	StageManagement      StageName = "management"
	StageSalaryBenefits  StageName = "salary_benefits"
	StageCareerGrowth    StageName = "career_growth"
)

// AllStages lists every recognized analysis stage in declaration order.
func AllStages() []StageName {
	return []StageName{
		StageCompanyCulture,
		StageWorkLifeBalance,
		StageManagement,
		StageSalaryBenefits,
		StageCareerGrowth,
	}
}

// IsKnownStage reports whether name is part of the closed stage set.
func IsKnownStage(name StageName) bool {
	switch name {
	case StageCompanyCulture, StageWorkLifeBalance, StageManagement,
		StageSalaryBenefits, StageCareerGrowth:
		return true
	}
	return false
}

// Document represents a unit of retrievable review text plus metadata.
// Documents are immutable once admitted to the retrieval index.
type Document struct {
	Id         ID
	Content    string
	Metadata   map[string]string // company, category, content_type, polarity, rating, ...
	Embedding  []float32         // populated by the ingestion embedding processor; may be empty
	IngestedAt time.Time
}

// Metadata keys written by ingestion and matched by retrieval filters.
const (
	MetaCompany          = "company"
	MetaCategory         = "category"
	MetaContentType      = "content_type"
	MetaPolarity         = "polarity"
	MetaRating           = "rating"
	MetaEmploymentStatus = "employment_status"
	MetaYear             = "year"
)

// ReviewRecord is one record of the external scraper feed.
// Ingestion maps it onto the Document schema; the retrieval and
// orchestration core performs no crawling of its own.
type ReviewRecord struct {
	Company          string `json:"company"`
	Category         string `json:"category"`
	ContentType      string `json:"contentType"` // pros | cons | title
	Polarity         string `json:"polarity"`
	Rating           int    `json:"rating"`
	EmploymentStatus string `json:"employmentStatus"`
	Year             int    `json:"year"`
	Text             string `json:"text"`
}

// Weights controls the lexical/semantic blend of hybrid retrieval.
// The two components must sum to 1.0.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// RetrievalQuery describes one hybrid search request.
type RetrievalQuery struct {
	Text           string
	Filters        map[string]string // exact-match metadata constraints
	TopK           int
	Weights        Weights
	ScoreThreshold float64
}

// ScoredDocument is one ranked entry of a RetrievalResult.
type ScoredDocument struct {
	DocumentID    ID
	CombinedScore float64
	LexicalScore  float64
	SemanticScore float64
	Reranked      bool
}

// RetrievalResult is an ordered result set, strictly descending by
// CombinedScore with ties broken by DocumentID ascending.
type RetrievalResult []ScoredDocument

// DocumentIDs returns the result's document IDs in rank order.
func (r RetrievalResult) DocumentIDs() []ID {
	ids := make([]ID, len(r))
	for i, s := range r {
		ids[i] = s.DocumentID
	}
	return ids
}

// SimilarityMatch represents a document match from vector similarity search.
type SimilarityMatch struct {
	DocumentID ID
	Score      float64
}

// AnalysisResult is the successful output of one analysis stage.
// A failed stage produces a StageError instead; there is never a
// zero-valued AnalysisResult for a failed stage.
type AnalysisResult struct {
	Stage                 StageName
	Score                 *float64 // 0-100, nil if the generator gave no score
	Confidence            float64  // 0.0-1.0
	Narrative             string
	SupportingDocumentIDs []ID
	GeneratedAt           time.Time
}

// ErrorKind classifies stage failures.
type ErrorKind int

const (
	ErrorKindValidation ErrorKind = iota + 1
	ErrorKindRetrieval
	ErrorKindGeneration
	ErrorKindTimeout
	ErrorKindUnknown
)

// String returns the kind's wire name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "validation"
	case ErrorKindRetrieval:
		return "retrieval"
	case ErrorKindGeneration:
		return "generation"
	case ErrorKindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// StageError records the failure of one stage. Recoverable errors do
// not abort the run; the remaining stages still execute.
type StageError struct {
	Stage       StageName
	Kind        ErrorKind
	Message     string
	Recoverable bool
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return string(e.Stage) + " [" + e.Kind.String() + "]: " + e.Message
}

// RunStatus is the terminal outcome of an orchestration run.
type RunStatus int

const (
	RunSuccess RunStatus = iota + 1
	RunPartialSuccess
	RunFailed
)

// String returns the status's wire name.
func (s RunStatus) String() string {
	switch s {
	case RunSuccess:
		return "success"
	case RunPartialSuccess:
		return "partial_success"
	default:
		return "failed"
	}
}

// FinalReport is the run-level result returned to callers. A failed run
// carries no analysis content, only the error list; a partial success
// carries whatever results were produced, flagged as incomplete.
type FinalReport struct {
	RequestID      string
	Company        string
	Status         RunStatus
	OverallScore   *float64
	Narrative      string
	Results        map[StageName]AnalysisResult
	Errors         []StageError
	Progress       float64
	PerStageTiming map[StageName]time.Duration
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Incomplete reports whether the run degraded partially or entirely.
func (r *FinalReport) Incomplete() bool {
	return r.Status != RunSuccess
}
