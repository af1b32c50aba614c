package models

import "time"

// Upload is a required supporting-data slot on a journal entry. The slot
// list is fixed at entry creation; attaching/detaching a file toggles it.
type Upload struct {
	ID           string     `json:"id"`
	AssetId      string     `json:"asset_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	FileName     string     `json:"file_name,omitempty"`
	FileAttached bool       `json:"file_attached"`
	AttachedAt   *time.Time `json:"attached_at,omitempty"`
}

func AttachedUploadCount(uploads []*Upload) int {
	n := 0
	for _, u := range uploads {
		if u.FileAttached {
			n++
		}
	}
	return n
}
