package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Storage folders, one per document type.
const (
	FolderManuscripts = "manuscripts"
	FolderRevisions   = "revisions"
)

// FileRef points at a document held by the object store. Raw bytes are never
// persisted in the database.
type FileRef struct {
	StorageID    string `gorm:"column:storage_id;size:255" json:"storageId"`
	URL          string `gorm:"column:url;size:1024" json:"url"`
	OriginalName string `gorm:"column:original_name;size:255" json:"originalName"`
	MimeType     string `gorm:"column:mime_type;size:100" json:"mimeType"`
	Size         int64  `gorm:"column:size" json:"size"`
	Pages        int    `gorm:"column:pages" json:"pages"`
	Checksum     string `gorm:"column:checksum;size:32" json:"checksum"`
}

func (f FileRef) IsZero() bool {
	return f.StorageID == ""
}

func (f FileRef) SizeInMB() float64 {
	return float64(f.Size) / (1024 * 1024)
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// NormalizeList trims, drops empties and removes case-insensitive duplicates.
func NormalizeList(items []string) StringList {
	out := make(StringList, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// JSONMap holds free-form metadata, such as payment gateway responses.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*m = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, (*map[string]interface{})(m))
}
