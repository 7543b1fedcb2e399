package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentTypeDriverLicense DocumentType = "vozacka_dozvola"
	DocumentTypeIDCard        DocumentType = "licna_karta"
	DocumentTypePassport      DocumentType = "pasos"
)

func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeDriverLicense, DocumentTypeIDCard, DocumentTypePassport:
		return true
	}
	return false
}

type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// MaxDocumentSize is the upload limit for identity documents.
const MaxDocumentSize = 5 << 20

var documentExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// DocumentContentType returns the content type for an allowed file name.
func DocumentContentType(filename string) (string, bool) {
	ct, ok := documentExtensions[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

type Document struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Name       string         `json:"name"`
	StorageKey string         `json:"storage_key"`
	Type       DocumentType   `json:"type"`
	Status     DocumentStatus `json:"status"`
	Verified   bool           `json:"verified"`
	CreatedAt  time.Time      `json:"created_at"`
	UserName   string         `json:"user_name,omitempty"`
}

type DocumentFilter struct {
	UserID *int64
	Status DocumentStatus
}
