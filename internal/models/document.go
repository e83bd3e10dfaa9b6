package models

import "github.com/google/uuid"

// DocumentCategories is the fixed vault taxonomy. Each category seeds the
// default metadata fields offered when a document is created.
var DocumentCategories = map[string][]string{
	"NID":             {"NID Number", "Full Name", "Father's Name", "Mother's Name", "Date of Birth", "Address"},
	"Passport":        {"Passport Number", "Full Name", "Expiry Date", "Issue Date", "Issuing Authority"},
	"Driving License": {"License Number", "Full Name", "Vehicle Category", "Expiry Date", "Blood Group"},
	"Medical Card":    {"Member ID", "Full Name", "Blood Group", "Emergency Contact", "Provider"},
	"Passwords":       {"Website/Service", "Username", "Secret Password", "Notes"},
	"Others":          {"Identification Title", "Reference ID", "Expiry (If any)"},
}

func ValidDocumentCategory(category string) bool {
	_, ok := DocumentCategories[category]
	return ok
}

type Document struct {
	BaseModel
	UserID   uuid.UUID         `json:"userID" gorm:"type:uuid;not null;index"`
	Title    string            `json:"title" gorm:"type:varchar(200);not null"`
	Category string            `json:"category" gorm:"type:varchar(40);not null;index"`
	Notes    string            `json:"notes" gorm:"type:text;not null;default:''"`
	Metadata map[string]string `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`

	FileName    *string `json:"fileName,omitempty" gorm:"type:varchar(255)"`
	MimeType    *string `json:"mimeType,omitempty" gorm:"type:varchar(255)"`
	FileSize    int64   `json:"fileSize" gorm:"not null;default:0"`
	StoragePath *string `json:"-" gorm:"type:text"`

	Owner User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Document) TableName() string {
	return "documents"
}
