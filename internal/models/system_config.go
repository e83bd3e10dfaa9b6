package models

type CustomPage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	Content string `json:"content"`
	Active  bool   `json:"active"`
}

// SystemConfig is a singleton row read by nearly every screen. Feature flags
// fail open: a missing key means visible, only an explicit false hides.
type SystemConfig struct {
	BaseModel
	Features          map[string]bool   `json:"features" gorm:"type:jsonb;serializer:json"`
	Content           map[string]string `json:"content" gorm:"type:jsonb;serializer:json"`
	CustomPages       []CustomPage      `json:"customPages" gorm:"type:jsonb;serializer:json"`
	AppMaintenance    bool              `json:"appMaintenance" gorm:"not null;default:false"`
	MinAppVersion     string            `json:"minAppVersion" gorm:"type:varchar(20);not null;default:''"`
	CurrentAppVersion string            `json:"currentAppVersion" gorm:"type:varchar(20);not null;default:''"`
}

func (SystemConfig) TableName() string {
	return "system_config"
}

// DefaultSystemConfig seeds the singleton on first boot.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		Features: map[string]bool{
			"privacy":  true,
			"help":     true,
			"terms":    true,
			"pin":      true,
			"language": true,
			"vault":    true,
			"addCard":  true,
			"report":   true,
			"profile":  true,
			"about":    true,
		},
		Content: map[string]string{
			"about":      "Deshi Wallet is a next-generation encrypted storage solution for your digital identity and financial assets.",
			"privacy":    "Your data is secured using AES-256 bit encryption.",
			"helpHeader": "Our premium support team is available 24/7.",
			"faq":        "How do I add a new card? Go to the Home screen and use the add button.",
			"terms":      "By accessing Deshi Wallet, you agree to be bound by these Terms of Service.",
		},
		CustomPages:       []CustomPage{},
		AppMaintenance:    false,
		MinAppVersion:     "1.3.0",
		CurrentAppVersion: "1.3.0",
	}
}
