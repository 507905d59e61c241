package types

// UserProfile is keyed by the wallet address. It is maintained by the settings
// flow; the dispatch pipeline only reads it.
type UserProfile struct {
	BaseDocument  `json:",inline"` // _id is the wallet address
	Address       string           `json:"address" validate:"required"`
	Username      string           `json:"username,omitempty"`      // local part of username@<email domain>
	OnlyInternal  *bool            `json:"onlyInternal,omitempty"`  // nil means server default
	AnonymousMode bool             `json:"anonymousMode,omitempty"` // hide username when sending
	Created       int64            `json:"created,omitempty"`
	Modified      int64            `json:"modified,omitempty"`
}
