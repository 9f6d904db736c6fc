// Package credentials provides durable storage for the session credentials
// of the device user: the access token, the refresh token and a snapshot of
// the user profile.
//
// All backends persist the same three logical slots and treat them as a
// unit: Write stores all three or fails, Clear removes all three. A snapshot
// that is missing any slot is reported as-is by Read; callers decide that a
// partial snapshot means "logged out" (see Credentials.Complete).
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Logical slot keys shared by every key/value backend.
const (
	SlotAccessToken  = "access_token"
	SlotRefreshToken = "refresh_token"
	SlotUser         = "user"
)

var (
	// ErrIncomplete is returned by Write when any of the three slots is empty.
	ErrIncomplete = errors.New("credentials: access token, refresh token and user are all required")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("credentials: unknown backend")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("credentials: store is closed")
)

// CustomerType distinguishes individual and company accounts.
type CustomerType string

const (
	CustomerIndividual CustomerType = "individual"
	CustomerCompany    CustomerType = "company"
)

// User is a denormalized profile snapshot kept for display only. It is never
// used for authorization decisions.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	Role         string       `json:"role,omitempty"`
	CustomerType CustomerType `json:"customer_type,omitempty"`
	CompanyName  string       `json:"company_name,omitempty"`
}

// DisplayName returns "First Last", falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Credentials is a snapshot of the three stored slots.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Complete reports whether all three slots are present.
func (c *Credentials) Complete() bool {
	return c != nil && c.AccessToken != "" && c.RefreshToken != "" && c.User != nil
}

// Empty reports whether no slot is present.
func (c *Credentials) Empty() bool {
	return c == nil || (c.AccessToken == "" && c.RefreshToken == "" && c.User == nil)
}

// Clone returns a deep copy.
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	out := *c
	if c.User != nil {
		u := *c.User
		out.User = &u
	}
	return &out
}

// Store persists credentials across process restarts.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Read returns the stored snapshot. Missing slots are returned as zero
	// values; a missing key is never an error.
	Read(ctx context.Context) (*Credentials, error)

	// Write stores all three slots. Returns ErrIncomplete if any is missing.
	Write(ctx context.Context, creds *Credentials) error

	// Clear removes all three slots. Clearing an empty store succeeds.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// validate rejects partial writes before any backend touches disk.
func validate(creds *Credentials) error {
	if !creds.Complete() {
		return ErrIncomplete
	}
	return nil
}

// encodeUser serializes the user slot as JSON text.
func encodeUser(u *User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(data), nil
}

// decodeUser parses the user slot. An unreadable slot is reported as absent
// so that a corrupted record degrades to "logged out" instead of an error.
func decodeUser(raw string) *User {
	if raw == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// fromSlots assembles a snapshot from raw slot values.
func fromSlots(slots map[string]string) *Credentials {
	return &Credentials{
		AccessToken:  slots[SlotAccessToken],
		RefreshToken: slots[SlotRefreshToken],
		User:         decodeUser(slots[SlotUser]),
	}
}

// toSlots flattens a snapshot into raw slot values.
func toSlots(creds *Credentials) (map[string]string, error) {
	user, err := encodeUser(creds.User)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		SlotAccessToken:  creds.AccessToken,
		SlotRefreshToken: creds.RefreshToken,
		SlotUser:         user,
	}, nil
}

// allSlots lists the slot keys in a stable order.
var allSlots = []string{SlotAccessToken, SlotRefreshToken, SlotUser}
