package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_MessagesInFieldOrder(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&registerReq{Name: "A", Email: "x", Phone: "12", Password: "abc"})
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, []string{
		"Name must be at least 2 characters",
		"Invalid email address",
		"Phone number must be at least 10 digits",
		"Password must be at least 6 characters",
	}, ve.Messages)
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(&registerReq{Name: "Asha", Email: "asha@example.com", Phone: "+91 (987) 654-3210", Password: "secret1"}))
}

func TestValidator_PasswordByteLimit(t *testing.T) {
	v := NewValidator()
	// 36 two-byte runes fit, 40 do not even though both are under 72 characters.
	assert.NoError(t, v.Validate(&resetReq{Token: "t", Password: strings.Repeat("é", 36)}))
	assert.EqualError(t, v.Validate(&resetReq{Token: "t", Password: strings.Repeat("é", 40)}), "Password must be at most 72 bytes")
	assert.EqualError(t, v.Validate(&resetReq{Token: "t", Password: "abc"}), "Password must be at least 6 characters")
}

func TestValidator_Phone(t *testing.T) {
	v := NewValidator()
	cases := map[string]bool{
		"9876543210":     true,
		"+91 9876543210": true,
		"987-654-3210":   true,
		"98765 4321":     false,
		"98765x43210":    false,
		"9876+543210":    false,
	}
	for phone, valid := range cases {
		err := v.Validate(&guestOrderReq{Name: "Guest", Email: "g@example.com", Phone: phone, Amount: 10})
		if valid {
			assert.NoError(t, err, phone)
		} else {
			assert.EqualError(t, err, "Phone number must be at least 10 digits", phone)
		}
	}
}

func TestValidator_NestedFieldsUseDefaults(t *testing.T) {
	v := NewValidator()
	days := make([]dayMenuReq, 7)
	for i := range days {
		days[i] = dayMenuReq{Day: "Monday"}
	}
	days[3].Day = ""
	err := v.Validate(&menuReq{Days: days})
	assert.EqualError(t, err, "day is required")

	err = v.Validate(&menuReq{Days: days[:2]})
	assert.EqualError(t, err, "Menu must list all 7 days of the week")
}

func TestValidator_DefaultMessages(t *testing.T) {
	type req struct {
		Kind  string `json:"kind" validate:"oneof=a b"`
		Count int    `json:"count" validate:"max=3"`
		Link  string `json:"link" validate:"omitempty,http_url"`
	}
	err := NewValidator().Validate(req{Kind: "c", Count: 4, Link: "ftp://x"})
	assert.EqualError(t, err, "kind must be one of: a, b, count must be at most 3, link must be a valid URL")
}
