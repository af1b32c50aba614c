package models

import "time"

// Findings is the per-entry AI findings document. Content accumulates
// while the generation stream runs; Status tracks the adopt lifecycle.
type Findings struct {
	AssetId     string         `json:"asset_id"`
	Status      FindingsStatus `json:"status"`
	Content     string         `json:"content"`
	GeneratedAt *time.Time     `json:"generated_at,omitempty"`
}
