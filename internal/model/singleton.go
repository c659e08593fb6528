package model

import "time"

// SingletonID is the fixed id of entity kinds with exactly one instance.
const SingletonID = "singleton"

// Weekdays lists the days a weekly menu must cover, in display order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayMenu holds the three meals served on one weekday.
type DayMenu struct {
	Day       string `json:"day"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

// Menu is the weekly menu singleton.
type Menu struct {
	ID        string    `json:"id"`
	Days      []DayMenu `json:"days"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Setting is the global settings singleton.
type Setting struct {
	ID         string    `json:"id"`
	MonthlyFee int64     `json:"monthlyFee"` // whole rupees
	MessRules  string    `json:"messRules"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
