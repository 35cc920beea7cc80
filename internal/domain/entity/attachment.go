package entity

import (
	"fmt"
	"net/url"
	"time"
)

// Attachment is a stored document linked to a record field
type Attachment struct {
	ID        int64     `json:"id"`
	Model     string    `json:"model"`
	RecordID  int64     `json:"record_id"`
	Field     string    `json:"field"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentURL is the download address of a record field's document
func ContentURL(model string, recordID int64, field, fileName string) string {
	return fmt.Sprintf("/content/%s/%d/%s/%s?download=true",
		model, recordID, field, url.PathEscape(fileName))
}

// URL returns the download address of the attachment
func (a *Attachment) URL() string {
	return ContentURL(a.Model, a.RecordID, a.Field, a.FileName)
}
