// Package importer normalizes external analytics exports and drives
// resumable, batched, progress-tracked ingestion jobs.
package importer

// Batch is one contiguous slice of source rows.
type Batch struct {
	Offset int
	Limit  int
}

// DefaultBatchSize is the number of rows fetched and written per batch.
const DefaultBatchSize = 1000

// CalculateBatches splits totalRows into ceil(totalRows/batchSize)
// batches; batch i covers [i*batchSize, min(totalRows, (i+1)*batchSize)).
func CalculateBatches(totalRows, batchSize int) []Batch {
	if totalRows <= 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	count := (totalRows + batchSize - 1) / batchSize
	batches := make([]Batch, 0, count)
	for i := 0; i < count; i++ {
		offset := i * batchSize
		limit := batchSize
		if offset+limit > totalRows {
			limit = totalRows - offset
		}
		batches = append(batches, Batch{Offset: offset, Limit: limit})
	}
	return batches
}
