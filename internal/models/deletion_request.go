package models

import "github.com/google/uuid"

type DeletionRequestStatus string

const (
	DeletionRequestPending  DeletionRequestStatus = "pending"
	DeletionRequestDeclined DeletionRequestStatus = "declined"
)

// DeletionRequest is a user's petition to erase their account. Approval
// removes the request together with the account and vault; declines keep the
// row with the reviewer's feedback.
type DeletionRequest struct {
	BaseModel
	UserID        uuid.UUID             `json:"userID" gorm:"type:uuid;not null;index"`
	UserEmail     string                `json:"userEmail" gorm:"type:varchar(255);not null"`
	Reason        string                `json:"reason" gorm:"type:text;not null"`
	Status        DeletionRequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	AdminFeedback *string               `json:"adminFeedback,omitempty" gorm:"type:text"`
}

func (DeletionRequest) TableName() string {
	return "deletion_requests"
}
