package model

// Column is one user-defined extraction field. Columns with a blank
// prompt are inactive and excluded from the output contract.
type Column struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Synonym string `json:"synonym"`
	Prompt  string `json:"prompt"`
}

// Row is a caller-provided record; Values maps field keys to extracted
// strings and is filled in from successful extractions.
type Row struct {
	ID     int               `json:"id"`
	Values map[string]string `json:"values"`
}

// FileMeta correlates a submitted document to a row, paired with the
// document list by position.
type FileMeta struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

// Upload is the handle returned by the inference service's file storage
// for one submitted document. It lives only for the duration of a run.
type Upload struct {
	FileID   string `json:"id"`
	Filename string `json:"filename"`
	RowID    *int   `json:"rowId"`
}

// ExtractionOutcome is the per-document result. Error is set if and only
// if Response and OutputText are absent.
type ExtractionOutcome struct {
	RowID      *int    `json:"rowId"`
	Filename   string  `json:"filename"`
	UploadID   string  `json:"uploadId"`
	Response   any     `json:"response"`
	OutputText *string `json:"outputText"`
	Error      *string `json:"error"`
}
