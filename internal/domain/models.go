// Package domain defines the persistence models for clients, bookings,
// promotions, reviews, venue settings, and broadcast subscribers. These
// types are mapped with GORM and form the core data layer of the booking
// application.
package domain

import "time"

// Booking status values. A booking starts as pending and only moves
// forward: pending -> confirmed -> completed, with canceled reachable from
// any non-terminal state. completed and canceled are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// NonTerminalStatuses lists the statuses of bookings that still hold a
// table. Conflict detection and the reminder scan only consider these.
var NonTerminalStatuses = []string{StatusPending, StatusConfirmed}

// IsTerminal reports whether a booking status admits no further
// transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCanceled
}

// Client is a person who may hold bookings. Clients are created lazily on
// first contact (bot start, web bootstrap, or a staff-entered booking) and
// are never deleted.
//
// Fields:
//   - ChatID: external chat identity; unique. Technical/staff clients use
//     reserved placeholder identities.
//   - PhoneHash: opaque lookup string; not necessarily a real phone.
//   - Visits: completed-visit counter, advanced exactly once per closed
//     booking. Only the booking engine and explicit staff adjustments may
//     write it.
//   - Notes: free-form staff notes; may embed JSON such as
//     {"personal_discount": 500}.
type Client struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id"    gorm:"uniqueIndex;not null"`
	Username  string    `json:"username"   gorm:"type:varchar(64)"`
	FullName  string    `json:"full_name"  gorm:"type:varchar(255)"`
	PhoneHash string    `json:"phone"      gorm:"type:varchar(255);index"`
	Visits    int       `json:"visits"     gorm:"not null;default:0"`
	Notes     string    `json:"notes"      gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`

	Bookings []Booking `json:"-" gorm:"foreignKey:ClientID"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// Booking reserves one table for one time window [BookingAt,
// BookingAt+DurationMinutes). Invariant: no two non-terminal bookings for
// the same table may have overlapping windows; the engine enforces this
// inside the creation transaction, and the unique (table_no, booking_at)
// index is a backstop only.
//
// ReminderDaySent and ReminderHourSent are independent flags for the
// 24-hour and 1-hour reminder lead times, so a booking can receive both.
// IsStaffBooking distinguishes employee-entered placeholders and blocks
// from guest self-service bookings.
type Booking struct {
	ID               uint      `json:"id"                gorm:"primaryKey"`
	ClientID         uint      `json:"client_id"         gorm:"not null;index"`
	BookingAt        time.Time `json:"booking_at"        gorm:"not null;index;uniqueIndex:ux_booking_table_start,priority:2"`
	DurationMinutes  int       `json:"duration_minutes"  gorm:"not null;default:120"`
	TableNo          int       `json:"table_no"          gorm:"not null;index;uniqueIndex:ux_booking_table_start,priority:1"`
	Guests           int       `json:"guests"            gorm:"not null;default:2"`
	Comment          string    `json:"comment"           gorm:"type:text"`
	Status           string    `json:"status"            gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','confirmed','completed','canceled')"`
	ReminderDaySent  bool      `json:"reminder_day_sent"  gorm:"not null;default:false"`
	ReminderHourSent bool      `json:"reminder_hour_sent" gorm:"not null;default:false"`
	IsStaffBooking   bool      `json:"is_staff_booking"  gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at"`

	Client Client `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// Promotion is a marketing item shown to guests. Independent of bookings;
// created, edited, and deleted by staff.
type Promotion struct {
	ID          uint      `json:"id"          gorm:"primaryKey"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	ImageURL    string    `json:"image_url"   gorm:"type:varchar(500)"`
	IsActive    bool      `json:"is_active"   gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Promotion.
func (Promotion) TableName() string { return "promotions" }

// Review is a client rating (1-5) with free text, optionally tied to the
// booking it followed.
type Review struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	ClientID  uint      `json:"client_id"  gorm:"not null;index"`
	BookingID *uint     `json:"booking_id,omitempty"`
	Rating    int       `json:"rating"     gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	Client Client `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// VenueSettings is the singleton row (id = 1) holding the venue's current
// schedule and contacts text. Defaults come from configuration when the
// row is absent.
type VenueSettings struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	ScheduleText string    `json:"schedule_text" gorm:"type:text;not null"`
	ContactsText string    `json:"contacts_text" gorm:"type:text;not null"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for VenueSettings.
func (VenueSettings) TableName() string { return "venue_settings" }

// Subscriber is a broadcast-list entry. Deliberately independent of
// Client: the two identities usually coincide via the chat id, but a
// client is not automatically a subscriber.
type Subscriber struct {
	ID           uint       `json:"id"           gorm:"primaryKey"`
	ChatID       int64      `json:"chat_id"      gorm:"uniqueIndex;not null"`
	FullName     string     `json:"full_name"    gorm:"type:varchar(255)"`
	IsActive     bool       `json:"is_active"    gorm:"not null;default:true"`
	SubscribedAt time.Time  `json:"subscribed_at"`
	LastMailedAt *time.Time `json:"last_mailed_at,omitempty"`
}

// TableName returns the database table name for Subscriber.
func (Subscriber) TableName() string { return "subscribers" }

// Admin session modes. An admin is either idle or composing a broadcast.
const (
	AdminModeIdle      = "idle"
	AdminModeBroadcast = "broadcast"
)

// AdminSession holds per-admin interaction state, keyed by the admin's
// chat identity. Keeping it in the store (rather than a process-wide flag)
// means broadcast mode survives restarts and works with more than one
// server instance.
type AdminSession struct {
	ID        uint      `json:"id"       gorm:"primaryKey"`
	AdminID   int64     `json:"admin_id" gorm:"uniqueIndex;not null"`
	Mode      string    `json:"mode"     gorm:"type:varchar(32);not null;default:'idle'"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AdminSession.
func (AdminSession) TableName() string { return "admin_sessions" }
