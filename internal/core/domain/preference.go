package domain

import (
	"time"

	"github.com/google/uuid"
)

// PreferenceChannel is a communication channel a preference applies to.
type PreferenceChannel string

const (
	ChannelEmail PreferenceChannel = "email"
	ChannelSMS   PreferenceChannel = "sms"
	ChannelPhone PreferenceChannel = "phone"
	ChannelPush  PreferenceChannel = "push"
	ChannelMail  PreferenceChannel = "mail"
)

// PreferenceFrequency controls how often a party wants to be contacted.
type PreferenceFrequency string

const (
	FrequencyImmediate PreferenceFrequency = "immediate"
	FrequencyDaily     PreferenceFrequency = "daily"
	FrequencyWeekly    PreferenceFrequency = "weekly"
	FrequencyMonthly   PreferenceFrequency = "monthly"
	FrequencyNever     PreferenceFrequency = "never"
)

// PreferenceRecord holds one communication preference per
// (party, type, channel) tuple.
type PreferenceRecord struct {
	ID             uuid.UUID           `json:"id"`
	PartyID        uuid.UUID           `json:"party_id"`
	PreferenceType string              `json:"preference_type"`
	Channel        PreferenceChannel   `json:"channel"`
	Enabled        bool                `json:"enabled"`
	Frequency      PreferenceFrequency `json:"frequency"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ValidPreferenceChannel reports whether ch is a known channel.
func ValidPreferenceChannel(ch PreferenceChannel) bool {
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelPhone, ChannelPush, ChannelMail:
		return true
	}
	return false
}

// ValidPreferenceFrequency reports whether f is a known frequency.
func ValidPreferenceFrequency(f PreferenceFrequency) bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyNever:
		return true
	}
	return false
}
