package ingestion

import (
	"strconv"
	"strings"

	"github.com/blindsight-ai/blindsight/core"
)

// recordID derives a deterministic document ID from the feed record's
// identity fields, so re-ingesting the same feed is idempotent while
// identical review text at two companies stays distinct.
func recordID(record *core.ReviewRecord) core.ID {
	return core.IDFromContent(strings.Join([]string{
		record.Company,
		record.Category,
		record.ContentType,
		record.Text,
	}, "\x1f"))
}

// recordToDocument maps one scraper feed record onto the document
// schema. Optional feed fields are omitted from metadata when unset so
// exact-match filters never match on empty values.
func recordToDocument(record *core.ReviewRecord) *core.Document {
	metadata := map[string]string{
		core.MetaCompany: record.Company,
	}
	if record.Category != "" {
		metadata[core.MetaCategory] = record.Category
	}
	if record.ContentType != "" {
		metadata[core.MetaContentType] = record.ContentType
	}
	if record.Polarity != "" {
		metadata[core.MetaPolarity] = record.Polarity
	}
	if record.Rating > 0 {
		metadata[core.MetaRating] = strconv.Itoa(record.Rating)
	}
	if record.EmploymentStatus != "" {
		metadata[core.MetaEmploymentStatus] = record.EmploymentStatus
	}
	if record.Year > 0 {
		metadata[core.MetaYear] = strconv.Itoa(record.Year)
	}

	return &core.Document{
		Id:       recordID(record),
		Content:  record.Text,
		Metadata: metadata,
	}
}
