// Package settings stores workspace-level preferences as key/value pairs.
package settings

import "errors"

// Known setting keys.
const (
	KeyWorkspaceName   = "workspace_name"
	KeyGreetingMessage = "greeting_message"
	KeyAwayMessage     = "away_message"
	KeyBusinessHours   = "business_hours"
)

// Defaults applied when a key has never been written.
var defaults = map[string]string{
	KeyWorkspaceName:   "Atendo",
	KeyGreetingMessage: "",
	KeyAwayMessage:     "",
	KeyBusinessHours:   "",
}

// ErrUnknownKey is returned for keys outside the known set.
var ErrUnknownKey = errors.New("unknown setting key")

// Setting is one stored preference.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpsertRequest sets one or more preferences at once.
type UpsertRequest map[string]string
