// Package model defines the data models for the nation game bot.
package model

import "time"

// User represents a player in the nation game. Users are created lazily
// on first interaction and keep a signed point balance.
type User struct {
	TelegramID          int64      `db:"telegram_id"`
	Username            string     `db:"username"`
	FullName            string     `db:"full_name"`
	Points              int64      `db:"points"`
	AdminLevel          int        `db:"admin_level"`
	Position            string     `db:"position"`
	CountryID           *int64     `db:"country_id"`
	IsRuler             bool       `db:"is_ruler"`
	LastCountryCreation *time.Time `db:"last_country_creation"`
	LostInCasino        int64      `db:"lost_in_casino"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Country represents a meme country. Exactly one ruler, who is also a citizen.
type Country struct {
	ID              int64     `db:"id"`
	RulerID         int64     `db:"ruler_id"`
	ChatID          *int64    `db:"chat_id"`
	Name            string    `db:"name"`
	Memename        string    `db:"memename"`
	Ideology        string    `db:"ideology"`
	Description     string    `db:"description"`
	FlagFileID      *string   `db:"flag_file_id"`
	MapURL          *string   `db:"map_url"`
	CountryURL      *string   `db:"country_url"`
	TaxRate         float64   `db:"tax_rate"`
	Treasury        int64     `db:"treasury"`
	InfluencePoints int64     `db:"influence_points"`
	AvgRating       float64   `db:"avg_rating"`
	TotalReviews    int       `db:"total_reviews"`
	CreatedAt       time.Time `db:"created_at"`
}

// History is one row of the append-only audit trail. Rows are never
// updated or deleted.
type History struct {
	ID        int64     `db:"id"`
	AdminID   *int64    `db:"admin_id"`
	TargetID  int64     `db:"target_id"`
	EventType string    `db:"event_type"`
	Points    int64     `db:"points"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// Review is one user's rating of one country. At most one row per
// (user, country); re-votes replace the old row.
type Review struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	CountryID int64     `db:"country_id"`
	Rating    int       `db:"rating"`
	CreatedAt time.Time `db:"created_at"`
}

// Punishment is a time-bounded or permanent restriction on a user.
// Punishments are soft-deactivated, never removed.
type Punishment struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	ActionType string     `db:"action_type"`
	Reason     string     `db:"reason"`
	AdminID    *int64     `db:"admin_id"`
	ExpiresAt  *time.Time `db:"expires_at"`
	IsActive   bool       `db:"is_active"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Event is a roleplay event run by an admin in a chat.
type Event struct {
	ID           int64     `db:"id"`
	AdminID      int64     `db:"admin_id"`
	ChatID       int64     `db:"chat_id"`
	Title        string    `db:"title"`
	Description  *string   `db:"description"`
	RewardPoints int64     `db:"reward_points"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

// Participant links a user to a roleplay event.
type Participant struct {
	EventID  int64     `db:"event_id"`
	UserID   int64     `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
}

// CountryStats bundles a country with derived citizen aggregates.
type CountryStats struct {
	Country       *Country
	RulerName     string
	CitizenCount  int
	CitizenPoints int64
}

// Event types for history rows.
const (
	EventPointsChange  = "POINTS_CHANGE"
	EventTransfer      = "TRANSFER"
	EventDonation      = "DONATION"
	EventJoinCountry   = "JOIN_COUNTRY"
	EventChangeCountry = "CHANGE_COUNTRY"
	EventLeaveCountry  = "LEAVE_COUNTRY"
	EventKicked        = "KICKED_FROM_COUNTRY"
	EventCoronation    = "CORONATION"
	EventTaxCollected  = "TAX_COLLECTION"
	EventCasino        = "CASINO"
	EventDailyBonus    = "DAILY_INFLUENCE_BONUS"
	EventRPReward      = "RP_EVENT_REWARD"
)

// Punishment action types.
const (
	PunishCountryCreationBan = "COUNTRY_CREATION_BAN"
	PunishGlobalBan          = "GLOBAL_BAN"
)

// Role labels shown in user profiles.
const (
	PositionTraveler    = "Путешественник"
	PositionCitizen     = "Гражданин"
	PositionRuler       = "Правитель"
	PositionFormerRuler = "Бывший правитель"
)

// Event statuses.
const (
	EventStatusActive   = "active"
	EventStatusFinished = "finished"
)

// MaxAdminLevel is the highest assignable admin level.
const MaxAdminLevel = 5
