package models

// User is the single signed-in account on this device. Identity fields are
// never updated in place; login replaces any prior row wholesale.
type User struct {
	ID                string  `db:"id" json:"id"`
	Name              string  `db:"name" json:"name"`
	Email             string  `db:"email" json:"email"`
	ProfilePictureURL *string `db:"profile_picture_url" json:"profile_picture_url,omitempty"`
	Token             string  `db:"token" json:"-"`
}
