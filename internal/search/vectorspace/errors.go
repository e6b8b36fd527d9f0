package vectorspace

import "errors"

var (
	// ErrVectorLengthMismatch indicates two vectors have different dimensions.
	ErrVectorLengthMismatch = errors.New("vector length mismatch")

	// ErrEmptyVocabulary indicates no term survived document-frequency pruning, e.g. a
	// corpus of one document or of stop words only.
	ErrEmptyVocabulary = errors.New("empty vocabulary after pruning")

	// ErrNotBuilt indicates the vector directory holds no fitted model.
	ErrNotBuilt = errors.New("vector space not built")
)
