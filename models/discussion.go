package models

import "time"

// Thread is an open/resolved discussion on a journal entry.
type Thread struct {
	ID          string       `json:"id"`
	AssetId     string       `json:"asset_id"`
	Status      ThreadStatus `json:"status"`
	Author      string       `json:"author"`
	Description string       `json:"description"`
	Replies     []*Reply     `json:"replies"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Reply belongs to a thread. At most one reply per thread carries
// IsAccepted; accepting one clears the flag on all siblings first.
type Reply struct {
	ID          string            `json:"id"`
	Author      string            `json:"author"`
	Content     string            `json:"content"`
	Attachments []ReplyAttachment `json:"attachments,omitempty"`
	IsAccepted  bool              `json:"is_accepted"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ReplyAttachment is file metadata only; blob storage is out of scope.
type ReplyAttachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (t *Thread) AcceptedReply() *Reply {
	for _, r := range t.Replies {
		if r.IsAccepted {
			return r
		}
	}
	return nil
}

func (t *Thread) ReplyById(id string) *Reply {
	for _, r := range t.Replies {
		if r.ID == id {
			return r
		}
	}
	return nil
}

type NewThread struct {
	Author      string `json:"author" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type NewReply struct {
	Author      string            `json:"author" binding:"required"`
	Content     string            `json:"content" binding:"required"`
	Attachments []ReplyAttachment `json:"attachments"`
}
