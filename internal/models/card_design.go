package models

// CardDesign is an admin-defined visual theme. The public design list merges
// the static built-in themes with all active rows from this table.
type CardDesign struct {
	BaseModel
	Name      string  `json:"name" gorm:"type:varchar(100);not null"`
	Class     string  `json:"class" gorm:"type:varchar(255);not null"`
	CustomCSS *string `json:"customCss,omitempty" gorm:"type:text"`
	Glass     bool    `json:"glass" gorm:"not null;default:false"`
	Active    bool    `json:"active" gorm:"not null;default:true"`
}

func (CardDesign) TableName() string {
	return "card_designs"
}

// StaticDesignEntry is a built-in theme shipped with the app. Static themes
// are addressed by a short id instead of a uuid.
type StaticDesignEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

var StaticCardDesigns = []StaticDesignEntry{
	{ID: "default", Name: "Pacific Deep", Class: "bg-gradient-to-br from-blue-600 to-indigo-900"},
	{ID: "dark", Name: "Obsidian Matte", Class: "bg-gradient-to-br from-gray-900 to-black"},
	{ID: "royal", Name: "Royal Velvet", Class: "bg-gradient-to-br from-purple-900 to-blue-900"},
	{ID: "gold", Name: "Gold Aurum", Class: "bg-gradient-to-br from-amber-400 to-yellow-800"},
	{ID: "rose", Name: "Rose Quartz", Class: "bg-gradient-to-br from-rose-400 to-purple-700"},
	{ID: "emerald", Name: "Emerald Forest", Class: "bg-gradient-to-br from-emerald-500 to-green-900"},
	{ID: "crimson", Name: "Crimson Peak", Class: "bg-gradient-to-br from-red-600 to-maroon-900"},
	{ID: "sunset", Name: "Dhaka Sunset", Class: "bg-gradient-to-tr from-orange-400 to-purple-800"},
}
