package models

// Notification targets are either a specific user id (uuid string) or one of
// the broadcast channels below.
const (
	NotificationTargetGlobal     = "global"
	NotificationTargetAdminAlert = "admin_alert"
)

// Notification rows keyed to the global channel are join-date gated at read
// time: a user never sees a broadcast created before their own createdAt.
type Notification struct {
	BaseModel
	Target   string   `json:"userId" gorm:"column:user_id;type:varchar(45);not null;index"`
	Title    string   `json:"title" gorm:"type:varchar(200);not null"`
	Message  string   `json:"message" gorm:"type:text;not null"`
	Read     bool     `json:"read" gorm:"not null;default:false;index"`
	ImageURL *string  `json:"imageUrl,omitempty" gorm:"type:text"`
	Images   []string `json:"images,omitempty" gorm:"type:jsonb;serializer:json"`
}

func (Notification) TableName() string {
	return "notifications"
}
