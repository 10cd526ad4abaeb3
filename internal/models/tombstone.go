package models

import "time"

type TombstoneKind string

const (
	TombstoneTask     TombstoneKind = "task"
	TombstoneProposal TombstoneKind = "proposal"
)

// Tombstone marks a deleted task or proposal id. Replayed writes for the id
// are refused.
type Tombstone struct {
	ID        string        `gorm:"type:varchar(36);primarykey" json:"id"`
	Kind      TombstoneKind `gorm:"type:varchar(10);primarykey" json:"kind"`
	DeletedAt time.Time     `json:"deleted_at"`
}
