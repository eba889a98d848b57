package validators

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

const multipartMemory = 32 << 20

// UploadedFile is a multipart file part read fully into memory.
type UploadedFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ParseMultipartForm caps the request at maxBytes and parses the multipart body.
func ParseMultipartForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
				WithDetails(map[string]any{"limitBytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormString returns the trimmed value of a parsed form field.
func FormString(r *http.Request, field string) string {
	if r.MultipartForm != nil {
		if values := r.MultipartForm.Value[field]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
	}
	return strings.TrimSpace(r.FormValue(field))
}

// DecodeJSONField strictly decodes a JSON-encoded form field and validates
// every element when dest is a slice of structs.
func DecodeJSONField(r *http.Request, field string, dest any) error {
	raw := FormString(r, field)
	if raw == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{field: "is required"})
	}
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s field", field)).
			WithDetails(map[string]any{"field": field, "error": err.Error()})
	}
	if decoder.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s field", field)).
			WithDetails(map[string]any{"field": field, "error": "trailing data"})
	}
	return nil
}

// ValidateStruct runs the shared validator against v.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ReadFormFiles loads every file sent under field, in submission order. Each
// part is read to at most maxFileBytes+1 so oversize uploads stay detectable
// without buffering them whole.
func ReadFormFiles(r *http.Request, field string, maxFileBytes int64) ([]UploadedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	files := make([]UploadedFile, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header, maxFileBytes)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload").
				WithDetails(map[string]any{"field": field, "file": header.Filename})
		}
		files = append(files, UploadedFile{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readPart(header *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var reader io.Reader = file
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
