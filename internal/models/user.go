package models

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleModerator UserRole = "moderator"
	UserRoleUser      UserRole = "user"
)

func ValidUserRole(role UserRole) bool {
	switch role {
	case UserRoleAdmin, UserRoleModerator, UserRoleUser:
		return true
	default:
		return false
	}
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func ValidVerificationStatus(status VerificationStatus) bool {
	switch status {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	default:
		return false
	}
}

// User is the wallet profile. AppPin holds the AES-GCM encrypted app PIN;
// PinProtectionEnabled may only be true while a PIN is set.
type User struct {
	BaseModel
	Email                string             `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash         string             `json:"-" gorm:"type:text;not null"`
	FullName             string             `json:"fullName" gorm:"type:varchar(150);not null"`
	DateOfBirth          string             `json:"dob" gorm:"type:varchar(20);not null;default:''"`
	Status               VerificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Role                 UserRole           `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	ProfilePhotoURL      *string            `json:"profilePhoto,omitempty" gorm:"type:text"`
	AppPin               *string            `json:"-" gorm:"type:text"`
	PinProtectionEnabled bool               `json:"pinProtectionEnabled" gorm:"not null;default:false"`

	Cards     []Card     `json:"-" gorm:"foreignKey:UserID"`
	Documents []Document `json:"-" gorm:"foreignKey:UserID"`
}
