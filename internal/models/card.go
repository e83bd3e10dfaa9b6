package models

import "github.com/google/uuid"

type PaymentMethod string

const (
	PaymentMethodVisa       PaymentMethod = "Visa"
	PaymentMethodMasterCard PaymentMethod = "MasterCard"
	PaymentMethodAmex       PaymentMethod = "Amex"
	PaymentMethodNexus      PaymentMethod = "Nexus"
)

func ValidPaymentMethod(method PaymentMethod) bool {
	switch method {
	case PaymentMethodVisa, PaymentMethodMasterCard, PaymentMethodAmex, PaymentMethodNexus:
		return true
	default:
		return false
	}
}

// Card is a stored bank card. CVV and PIN are AES-GCM encrypted at rest and
// only decrypted into a response while the owner holds an open reveal window.
type Card struct {
	BaseModel
	UserID        uuid.UUID     `json:"userID" gorm:"type:uuid;not null;index"`
	BankName      string        `json:"bankName" gorm:"type:varchar(120);not null"`
	HolderName    string        `json:"holderName" gorm:"type:varchar(150);not null"`
	CardNumber    string        `json:"cardNumber" gorm:"type:varchar(30);not null"`
	ExpiryDate    string        `json:"expiryDate" gorm:"type:varchar(5);not null"`
	CVVEncrypted  string        `json:"-" gorm:"type:text;not null"`
	PinEncrypted  *string       `json:"-" gorm:"type:text"`
	PaymentMethod PaymentMethod `json:"paymentMethod" gorm:"type:varchar(20);not null"`
	Design        string        `json:"design" gorm:"type:varchar(60);not null;default:'default'"`

	Owner User `json:"-" gorm:"foreignKey:UserID;references:ID"`

	// Computed per request, never stored.
	ExpiryStatus string `json:"expiryStatus,omitempty" gorm:"-"`
	CVV          string `json:"cvv,omitempty" gorm:"-"`
	Pin          string `json:"pin,omitempty" gorm:"-"`
	Revealed     bool   `json:"revealed" gorm:"-"`
}

func (Card) TableName() string {
	return "cards"
}

// MaskedNumber keeps only the last four digits visible.
func (c *Card) MaskedNumber() string {
	if len(c.CardNumber) <= 4 {
		return c.CardNumber
	}
	return "•••• •••• •••• " + c.CardNumber[len(c.CardNumber)-4:]
}
