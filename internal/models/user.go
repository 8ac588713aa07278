// Package models contains data structures for the application's domain models.
package models

import (
	"slices"
	"time"
)

// User is the full identity record stored in the users collection.
// Followers and Following are only ever written through the social graph
// edge functions of the user repository.
type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	Avatar     string   `json:"avatar"`
	Bio        string   `json:"bio"`
	CoverPhoto string   `json:"coverPhoto,omitempty"`
	Followers  []string `json:"followers"`
	Following  []string `json:"following"`
	CreatedAt  int64    `json:"createdAt"`
}

// Clone returns a deep copy so snapshots never share slices with the store.
func (u User) Clone() User {
	u.Followers = slices.Clone(u.Followers)
	u.Following = slices.Clone(u.Following)
	return u
}

// IsFollowing reports whether targetID is in the user's following set.
func (u *User) IsFollowing(targetID string) bool {
	return slices.Contains(u.Following, targetID)
}

// ProfilePatch carries the mutable profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	Name       *string
	Bio        *string
	Avatar     *string
	CoverPhoto *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Bio == nil && p.Avatar == nil && p.CoverPhoto == nil
}

// Apply merges the non-nil fields into u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.CoverPhoto != nil {
		u.CoverPhoto = *p.CoverPhoto
	}
}

// Millis converts t to the Unix millisecond timestamps used in documents.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
