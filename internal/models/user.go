package models

import "encoding/json"

// UserProfile is the account profile returned by the auth callback.
//
// Raw keeps the exact JSON it was decoded from so that it can be persisted byte-for-byte.
type UserProfile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseUserProfile decodes data into a profile and keeps a copy of the raw bytes.
func ParseUserProfile(data []byte) (*UserProfile, error) {
	var p UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	p.Raw = append(json.RawMessage(nil), data...)
	return &p, nil
}

// MarshalJSON returns Raw when present so unknown fields survive a round trip.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain UserProfile
	return json.Marshal(plain(p))
}

// Name returns the display name, falling back to the id.
func (p UserProfile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}
