package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/pkg/logger"
	"gorm.io/gorm"
)

type ExpiryStatus string

const (
	ExpiryStatusExpired ExpiryStatus = "expired"
	ExpiryStatusSoon    ExpiryStatus = "soon"
	ExpiryStatusValid   ExpiryStatus = "valid"
)

// ExpirySoonWindowDays is the default lookahead window for the "soon"
// classification, overridable via VAULT_EXPIRY_SOON_DAYS.
const ExpirySoonWindowDays = 30

// ClassifyExpiry classifies with the default lookahead window.
func ClassifyExpiry(expiryDate string, now time.Time) ExpiryStatus {
	return ClassifyExpiryWithin(expiryDate, now, ExpirySoonWindowDays)
}

// ClassifyExpiryWithin maps a card's MM/YY expiry string to
// expired/soon/valid relative to now, flagging "soon" within soonDays days.
// Malformed input never blocks display: it classifies as valid. The
// comparison point is the last instant of the expiry month (23:59:59) in
// now's location.
func ClassifyExpiryWithin(expiryDate string, now time.Time, soonDays int) ExpiryStatus {
	if !strings.Contains(expiryDate, "/") {
		return ExpiryStatusValid
	}

	parts := strings.SplitN(expiryDate, "/", 2)
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return ExpiryStatusValid
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return ExpiryStatusValid
	}

	// Day 0 of the following month normalizes to the last day of the expiry month.
	expiry := time.Date(2000+year, time.Month(month)+1, 0, 23, 59, 59, 0, now.Location())

	diffDays := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	switch {
	case diffDays < 0:
		return ExpiryStatusExpired
	case diffDays <= soonDays:
		return ExpiryStatusSoon
	default:
		return ExpiryStatusValid
	}
}

// ExpiryNotifier creates "expiring soon" notifications for a user's cards.
// Each card gets at most one such notification, deduplicated by title.
type ExpiryNotifier struct {
	DB       *gorm.DB
	SoonDays int
}

func NewExpiryNotifier(db *gorm.DB, soonDays int) *ExpiryNotifier {
	if soonDays <= 0 {
		soonDays = ExpirySoonWindowDays
	}
	return &ExpiryNotifier{DB: db, SoonDays: soonDays}
}

// Classify applies the notifier's configured lookahead window.
func (n *ExpiryNotifier) Classify(expiryDate string, now time.Time) ExpiryStatus {
	return ClassifyExpiryWithin(expiryDate, now, n.SoonDays)
}

func expiryNotificationTitle(card *models.Card) string {
	return fmt.Sprintf("Card Expiring Soon: %s", card.BankName)
}

// Sweep inspects the given cards and emits a notification for every card
// classified as expiring soon that has not been flagged before. Failures are
// logged and skipped; the sweep never blocks a card listing.
func (n *ExpiryNotifier) Sweep(user *models.User, cards []models.Card, now time.Time) {
	for i := range cards {
		card := &cards[i]
		if n.Classify(card.ExpiryDate, now) != ExpiryStatusSoon {
			continue
		}

		title := expiryNotificationTitle(card)

		var count int64
		if err := n.DB.Model(&models.Notification{}).
			Where("user_id = ? AND title = ?", user.ID.String(), title).
			Count(&count).Error; err != nil {
			logger.Error("expiry_sweep_lookup_failed", err, map[string]interface{}{
				"card_id": card.ID.String(),
			})
			continue
		}
		if count > 0 {
			continue
		}

		lastFour := card.CardNumber
		if len(lastFour) > 4 {
			lastFour = lastFour[len(lastFour)-4:]
		}

		notification := models.Notification{
			Target: user.ID.String(),
			Title:  title,
			Message: fmt.Sprintf(
				"Your %s card ending in %s is expiring on %s.",
				card.PaymentMethod, lastFour, card.ExpiryDate,
			),
		}
		if err := n.DB.Create(&notification).Error; err != nil {
			logger.Error("expiry_sweep_notify_failed", err, map[string]interface{}{
				"card_id": card.ID.String(),
				"user_id": user.ID.String(),
			})
		}
	}
}
