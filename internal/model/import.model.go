package model

// ValidationError describes one rule violated by one row. Row is 1-based and
// counts from the first line of the uploaded sheet.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportResult struct {
	BatchID      string            `json:"batchId"`
	TotalRows    int               `json:"totalRows"`
	SuccessCount int               `json:"successCount"`
	FailedCount  int               `json:"failedCount"`
	Errors       []ValidationError `json:"errors"`
}
