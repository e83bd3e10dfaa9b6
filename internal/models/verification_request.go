package models

import "github.com/google/uuid"

// VerificationRequest is a manually reviewed identity submission. Deciding a
// request also moves the owning profile's status and notifies the user; those
// writes happen inside one transaction (see handlers).
type VerificationRequest struct {
	BaseModel
	UserID     uuid.UUID          `json:"userID" gorm:"type:uuid;not null;index"`
	UserName   string             `json:"userName" gorm:"type:varchar(150);not null"`
	UserEmail  string             `json:"userEmail" gorm:"type:varchar(255);not null"`
	DocType    string             `json:"docType" gorm:"type:varchar(60);not null"`
	DocContent string             `json:"docContent" gorm:"type:text;not null"`
	Status     VerificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (VerificationRequest) TableName() string {
	return "verification_requests"
}
