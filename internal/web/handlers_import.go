package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/spreadsheet"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to disk.
const multipartMemory = 8 << 20

// importRequest is the JSON body of POST /api/leads/import.
type importRequest struct {
	ColumnsMap []core.ColumnInstruction `json:"columnsMap"`
	Rows       []map[string]any         `json:"rows"`
}

type importResponse struct {
	Success bool `json:"success"`
	core.ImportResult
}

type previewResponse struct {
	Success   bool                     `json:"success"`
	Sheets    []string                 `json:"sheets"`
	Sheet     string                   `json:"sheet"`
	Headers   []string                 `json:"headers"`
	Rows      []map[string]any         `json:"rows"`
	TotalRows int                      `json:"total_rows"`
	Mapping   []core.ColumnInstruction `json:"mapping"`
}

// handleImport imports rows posted as JSON.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodyBytes)

	var body importRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		respondError(w, r, err)
		return
	}
	if body.ColumnsMap == nil || body.Rows == nil {
		respondError(w, r, fmt.Errorf("%w: columnsMap and rows must be arrays", core.ErrInvalidRequest))
		return
	}

	req, err := core.NewImportRequest(body.ColumnsMap, body.Rows)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.runImport(w, r, req, "api")
}

// handleImportFile imports an uploaded spreadsheet. Without a columnsMap
// every header is auto-detected.
func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	columns := autoInstructions(sheet.Headers)
	if raw := r.FormValue("columnsMap"); raw != "" {
		columns = nil
		if err := decodeJSON(bytes.NewReader([]byte(raw)), &columns); err != nil {
			respondError(w, r, err)
			return
		}
	}

	req, err := core.NewImportRequest(columns, sheet.Rows)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.runImport(w, r, req, "upload")
}

// handlePreview parses an uploaded spreadsheet and proposes a mapping
// without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	suggested, err := s.service.SuggestMapping(r.Context(), sheet.Headers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	mapping := make([]core.ColumnInstruction, len(suggested))
	for i, m := range suggested {
		mapping[i] = m.Instruction()
	}

	sample := sheet.Preview(s.cfg.Import.PreviewRows)
	writeJSON(w, r, http.StatusOK, previewResponse{
		Success:   true,
		Sheets:    sheet.Sheets,
		Sheet:     sheet.Name,
		Headers:   sheet.Headers,
		Rows:      sample.Rows,
		TotalRows: len(sheet.Rows),
		Mapping:   mapping,
	})
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, req core.ImportRequest, source string) {
	ctx := core.ContextWithClient(r.Context(), r.RemoteAddr, r.UserAgent())
	ctx = core.ContextWithSource(ctx, source)

	result, err := s.service.ImportLeads(ctx, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, importResponse{Success: true, ImportResult: result})
}

// readUpload reads the "file" part (and optional "sheet" field) of a
// multipart request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*spreadsheet.Sheet, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodyBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("file too large: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	return spreadsheet.Parse(header.Filename, file, r.FormValue("sheet"))
}

// decodeJSON decodes one JSON value, keeping numbers as json.Number so
// large phone numbers and ids keep every digit.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("file too large: %w", err)
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

func autoInstructions(headers []string) []core.ColumnInstruction {
	out := make([]core.ColumnInstruction, len(headers))
	for i, h := range headers {
		out[i] = core.ColumnInstruction{SourceHeader: h}
	}
	return out
}
