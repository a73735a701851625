package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := &Document{
			Id:      IDFromContent("good worklife"),
			Content: "good worklife",
			Metadata: map[string]string{
				MetaCompany:  "acme",
				MetaCategory: "culture",
			},
		}
		require.NoError(t, ValidateDocument(doc))
	})

	t.Run("no embedding is valid", func(t *testing.T) {
		doc := &Document{Content: "low pay"}
		require.NoError(t, ValidateDocument(doc))
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("empty content", func(t *testing.T) {
		err := ValidateDocument(&Document{})
		assert.ErrorIs(t, err, ErrInvalidDocument)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})
}

func TestValidateRetrievalQuery(t *testing.T) {
	valid := func() *RetrievalQuery {
		return &RetrievalQuery{
			Text:    "manager quality",
			TopK:    10,
			Weights: Weights{Lexical: 0.5, Semantic: 0.5},
		}
	}

	t.Run("valid query", func(t *testing.T) {
		require.NoError(t, ValidateRetrievalQuery(valid()))
	})

	t.Run("weights within tolerance", func(t *testing.T) {
		q := valid()
		q.Weights = Weights{Lexical: 0.3, Semantic: 0.7000000001}
		require.NoError(t, ValidateRetrievalQuery(q))
	})

	t.Run("nil query", func(t *testing.T) {
		assert.ErrorIs(t, ValidateRetrievalQuery(nil), ErrInvalidQuery)
	})

	t.Run("empty text", func(t *testing.T) {
		q := valid()
		q.Text = ""
		err := ValidateRetrievalQuery(q)
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.ErrorIs(t, err, ErrEmptyQueryText)
	})

	t.Run("zero topK", func(t *testing.T) {
		q := valid()
		q.TopK = 0
		err := ValidateRetrievalQuery(q)
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})

	t.Run("negative topK", func(t *testing.T) {
		q := valid()
		q.TopK = -3
		assert.ErrorIs(t, ValidateRetrievalQuery(q), ErrInvalidTopK)
	})

	t.Run("weights do not sum to one", func(t *testing.T) {
		q := valid()
		q.Weights = Weights{Lexical: 0.6, Semantic: 0.6}
		err := ValidateRetrievalQuery(q)
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})
}

func TestValidateReviewRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		record := &ReviewRecord{
			Company:     "acme",
			Category:    "culture",
			ContentType: "pros",
			Rating:      4,
			Year:        2025,
			Text:        "flexible hours and kind coworkers",
		}
		require.NoError(t, ValidateReviewRecord(record))
	})

	t.Run("nil record", func(t *testing.T) {
		assert.ErrorIs(t, ValidateReviewRecord(nil), ErrInvalidReviewRecord)
	})

	t.Run("empty text", func(t *testing.T) {
		record := &ReviewRecord{Company: "acme"}
		err := ValidateReviewRecord(record)
		assert.ErrorIs(t, err, ErrInvalidReviewRecord)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("empty company", func(t *testing.T) {
		record := &ReviewRecord{Text: "something"}
		assert.ErrorIs(t, ValidateReviewRecord(record), ErrInvalidReviewRecord)
	})
}
