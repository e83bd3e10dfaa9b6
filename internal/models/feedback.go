package models

import "github.com/google/uuid"

type Feedback struct {
	BaseModel
	UserID    uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	UserName  string    `json:"userName" gorm:"type:varchar(150);not null"`
	UserEmail string    `json:"userEmail" gorm:"type:varchar(255);not null"`
	Type      string    `json:"type" gorm:"type:varchar(40);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Read      bool      `json:"read" gorm:"not null;default:false;index"`
}

func (Feedback) TableName() string {
	return "feedback"
}
