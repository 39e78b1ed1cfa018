package model

import (
	"time"

	"github.com/google/uuid"
)

// ChangeAction names what happened to an operation.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ChangeLog records one mutation of an operation, written in the same
// transaction as the mutation itself. OldData and NewData hold JSON snapshots
// of the operation before and after; either may be nil (no before-state on
// create, no after-state on delete).
type ChangeLog struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	OperationID uuid.UUID
	Action      ChangeAction
	OldData     []byte
	NewData     []byte
	CreatedAt   time.Time
}
