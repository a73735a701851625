package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/blindsight-ai/blindsight/core"
)

// Key prefixes for different data types
const (
	documentPrefix        = "docrec"
	documentCompanyPrefix = "doccomp"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeCompanyKey generates a composite key for the company index.
// Format: prefix:company:id
func makeCompanyKey(company string, id core.ID) []byte {
	prefix := makePartialCompanyKey(company)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so keys under one company sort by ID
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialCompanyKey generates a partial key for scanning one company's
// documents. Format: prefix:company:
func makePartialCompanyKey(company string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", documentCompanyPrefix, company))
}
