// AngelaMos | 2026
// dto.go

package document

import (
	"time"
)

type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Status     Status `json:"status"`
	Message    string `json:"message"`
}

type ListItemResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	Status     Status    `json:"status"`
	WordCount  int       `json:"word_count"`
}

type DetailResponse struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	UploadDate    time.Time `json:"upload_date"`
	Status        Status    `json:"status"`
	WordCount     int       `json:"word_count"`
	ExtractedText *string   `json:"extracted_text"`
	ErrorMessage  *string   `json:"error_message"`
}

func ToListItemResponse(d *Document) ListItemResponse {
	return ListItemResponse{
		ID:         d.ID,
		Filename:   d.Filename,
		UploadDate: d.UploadDate,
		Status:     d.Status,
		WordCount:  d.WordCount,
	}
}

func ToListResponse(docs []Document) []ListItemResponse {
	out := make([]ListItemResponse, 0, len(docs))
	for i := range docs {
		out = append(out, ToListItemResponse(&docs[i]))
	}
	return out
}

func ToDetailResponse(d *Document) DetailResponse {
	return DetailResponse{
		ID:            d.ID,
		Filename:      d.Filename,
		UploadDate:    d.UploadDate,
		Status:        d.Status,
		WordCount:     d.WordCount,
		ExtractedText: d.ExtractedText,
		ErrorMessage:  d.ErrorMessage,
	}
}
