package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"data-extractor/internal/ai"
	"data-extractor/internal/logger"
	"data-extractor/internal/model"
)

var (
	ErrColumnsPayloadMissing = errors.New("Columns payload missing.")
	ErrNoActiveColumns       = errors.New("Please provide a description for at least one column.")
	ErrNoDocuments           = errors.New("Please upload at least one document.")
	ErrRowsPayloadMalformed  = errors.New("Rows payload malformed.")
	ErrFileMetaMalformed     = errors.New("File metadata payload malformed.")
	ErrColumnKeyCollision    = errors.New("duplicate column field key")
)

// InferenceClient is the collaborator handle for the external inference
// service: file registration plus one structured-output inference call.
type InferenceClient interface {
	UploadFile(ctx context.Context, filename string, content io.Reader, purpose string) (string, error)
	CreateResponse(ctx context.Context, req ai.ResponseRequest) (map[string]any, error)
}

type ExtractService struct {
	client InferenceClient
	model  string
	log    *logger.Logger
}

func NewExtractService(client InferenceClient, model string, log *logger.Logger) *ExtractService {
	return &ExtractService{
		client: client,
		model:  model,
		log:    log,
	}
}

// Document is one submitted file, already read off the wire.
type Document struct {
	Filename string
	Content  []byte
}

// ExtractInput carries the raw form fields; JSON decoding happens inside
// the run so malformed payloads fail with the service's own errors.
type ExtractInput struct {
	ColumnsJSON  string
	RowsJSON     string
	FileMetaJSON string
	Documents    []Document
}

// ExtractResult mirrors the endpoint's response body. Response holds the
// first outcome's raw inference payload for convenience.
type ExtractResult struct {
	Prompt         string                    `json:"prompt"`
	ResponseFormat map[string]any            `json:"responseFormat"`
	Response       any                       `json:"response"`
	RowResponses   []model.ExtractionOutcome `json:"rowResponses"`
	Uploads        []model.Upload            `json:"uploads"`
	Rows           []model.Row               `json:"rows"`
	ActiveColumns  []model.Column            `json:"activeColumns"`
}

// Extract runs one extraction: normalize input, compile the output
// contract, upload every document, then issue one inference call per
// upload. Uploads are all-or-nothing; inference failures are isolated
// per document. Both loops are strictly serial, so outcomes keep the
// submission order.
func (s *ExtractService) Extract(ctx context.Context, input ExtractInput) (*ExtractResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	columns, err := parseColumns(input.ColumnsJSON)
	if err != nil {
		return nil, err
	}

	activeColumns := make([]model.Column, 0, len(columns))
	for _, column := range columns {
		if strings.TrimSpace(column.Prompt) != "" {
			activeColumns = append(activeColumns, column)
		}
	}
	if len(activeColumns) == 0 {
		return nil, ErrNoActiveColumns
	}

	rows, err := parseRows(input.RowsJSON)
	if err != nil {
		return nil, err
	}
	fileMeta, err := parseFileMeta(input.FileMetaJSON)
	if err != nil {
		return nil, err
	}

	if len(input.Documents) == 0 {
		return nil, ErrNoDocuments
	}

	responseFormat, err := compileResponseFormat(activeColumns)
	if err != nil {
		return nil, err
	}
	prompt := compilePrompt(activeColumns)

	s.log.Info("extract.start",
		"run_id", runID,
		"columns", len(columns),
		"active_columns", len(activeColumns),
		"documents", len(input.Documents),
	)

	uploads, err := s.uploadDocuments(ctx, runID, input.Documents, fileMeta)
	if err != nil {
		return nil, err
	}

	outcomes := s.runInference(ctx, runID, uploads, prompt, responseFormat)
	s.fillRowValues(runID, rows, outcomes, responseFormat)

	var firstResponse any
	if len(outcomes) > 0 {
		firstResponse = outcomes[0].Response
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Error != nil {
			failed++
		}
	}
	s.log.Info("extract.done",
		"run_id", runID,
		"documents", len(outcomes),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return &ExtractResult{
		Prompt:         prompt,
		ResponseFormat: responseFormat,
		Response:       firstResponse,
		RowResponses:   outcomes,
		Uploads:        uploads,
		Rows:           rows,
		ActiveColumns:  activeColumns,
	}, nil
}

// uploadDocuments registers every document with the file storage, in
// submission order. Any failure aborts the run: without a file reference
// the later inference call cannot proceed, so there is no partial credit
// at this stage.
func (s *ExtractService) uploadDocuments(ctx context.Context, runID string, documents []Document, fileMeta []model.FileMeta) ([]model.Upload, error) {
	uploads := make([]model.Upload, 0, len(documents))
	for i, document := range documents {
		var rowID *int
		filename := document.Filename
		if i < len(fileMeta) {
			id := fileMeta[i].ID
			rowID = &id
			if fileMeta[i].Filename != "" {
				filename = fileMeta[i].Filename
			}
		}
		if filename == "" {
			filename = fmt.Sprintf("document-%d", i+1)
		}

		fileID, err := s.client.UploadFile(ctx, filename, bytes.NewReader(document.Content), ai.PurposeUserData)
		if err != nil {
			s.log.Error("extract.upload.failed", "run_id", runID, "filename", filename, "error", err)
			return nil, fmt.Errorf("upload document %q failed: %w", filename, err)
		}
		s.log.Debug("extract.upload.ok", "run_id", runID, "filename", filename, "file_id", fileID)

		uploads = append(uploads, model.Upload{
			FileID:   fileID,
			Filename: filename,
			RowID:    rowID,
		})
	}
	return uploads, nil
}

// runInference issues one call per upload. A failed call is recorded on
// that document's outcome and the loop moves on; this is the run's only
// partial-failure boundary.
func (s *ExtractService) runInference(ctx context.Context, runID string, uploads []model.Upload, prompt string, responseFormat map[string]any) []model.ExtractionOutcome {
	outcomes := make([]model.ExtractionOutcome, 0, len(uploads))
	for _, upload := range uploads {
		outcome := model.ExtractionOutcome{
			RowID:    upload.RowID,
			Filename: upload.Filename,
			UploadID: upload.FileID,
		}

		response, err := s.client.CreateResponse(ctx, ai.ResponseRequest{
			Model:          s.model,
			FileID:         upload.FileID,
			Prompt:         prompt,
			ResponseFormat: responseFormat,
		})
		if err != nil {
			s.log.Warn("extract.infer.failed", "run_id", runID, "filename", upload.Filename, "error", err)
			message := err.Error()
			outcome.Error = &message
		} else {
			outcome.Response = response
			outcome.OutputText = extractOutputText(response)
		}

		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// fillRowValues merges extracted fields into the matching rows. The
// extracted JSON must validate against the compiled contract; anything
// else leaves the row untouched.
func (s *ExtractService) fillRowValues(runID string, rows []model.Row, outcomes []model.ExtractionOutcome, responseFormat map[string]any) {
	schema, ok := responseFormat["schema"].(map[string]any)
	if !ok {
		return
	}

	rowIndex := make(map[int]*model.Row, len(rows))
	for i := range rows {
		rowIndex[rows[i].ID] = &rows[i]
	}

	for _, outcome := range outcomes {
		if outcome.RowID == nil || outcome.OutputText == nil {
			continue
		}
		row, ok := rowIndex[*outcome.RowID]
		if !ok {
			continue
		}
		if err := validateAgainstSchema(schema, []byte(*outcome.OutputText)); err != nil {
			s.log.Warn("extract.values.invalid", "run_id", runID, "row_id", *outcome.RowID, "error", err)
			continue
		}
		var fields map[string]string
		if err := json.Unmarshal([]byte(*outcome.OutputText), &fields); err != nil {
			continue
		}
		if row.Values == nil {
			row.Values = make(map[string]string, len(fields))
		}
		for key, value := range fields {
			row.Values[key] = value
		}
	}
}

func parseColumns(raw string) ([]model.Column, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrColumnsPayloadMissing
	}
	var wire []struct {
		ID      *int    `json:"id"`
		Name    *string `json:"name"`
		Synonym *string `json:"synonym"`
		Prompt  *string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, ErrColumnsPayloadMissing
	}

	columns := make([]model.Column, 0, len(wire))
	for i, entry := range wire {
		column := model.Column{ID: i + 1}
		if entry.ID != nil {
			column.ID = *entry.ID
		}
		if entry.Name != nil {
			column.Name = *entry.Name
		}
		if entry.Synonym != nil {
			column.Synonym = *entry.Synonym
		}
		if entry.Prompt != nil {
			column.Prompt = *entry.Prompt
		}
		columns = append(columns, column)
	}
	return columns, nil
}

func parseRows(raw string) ([]model.Row, error) {
	if strings.TrimSpace(raw) == "" {
		return []model.Row{}, nil
	}
	var rows []model.Row
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, ErrRowsPayloadMalformed
	}
	return rows, nil
}

func parseFileMeta(raw string) ([]model.FileMeta, error) {
	if strings.TrimSpace(raw) == "" {
		return []model.FileMeta{}, nil
	}
	var meta []model.FileMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, ErrFileMetaMalformed
	}
	return meta, nil
}
