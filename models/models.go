package models

import "time"

type Frequency string

const (
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
)

// Frequencies lists the allowed habit frequencies in display order.
var Frequencies = []Frequency{Daily, Weekly, Monthly}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	LoginCount   int       `json:"login_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type Habit struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Frequency   Frequency  `json:"frequency"`
	CreatedDate time.Time  `json:"created_date"`
	LastTracked *time.Time `json:"last_tracked,omitempty"`
	Streak      int        `json:"streak"`
}

// TabRecord is one entry of a user's latest browser-tab snapshot.
type TabRecord struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Duration   float64   `json:"duration"`
	CapturedAt time.Time `json:"captured_at"`
}

type APISession struct {
	Username  string
	CreatedAt time.Time
}
