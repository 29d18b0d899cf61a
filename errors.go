package docrag

import "fmt"

// SourceError reports a failed extraction: missing file, broken URL, or a
// corrupt document. Ingestion for that source aborts before any index write.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// BatchWriteError reports a failed vector index write for one batch of
// chunks. Start and End are the half-open chunk range [Start, End) of the
// batch within the document's chunk sequence.
type BatchWriteError struct {
	Start int
	End   int
	Err   error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("index write batch %d-%d: %v", e.Start, e.End, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }
