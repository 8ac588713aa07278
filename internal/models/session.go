package models

// Session is the denormalised projection of the signed-in user.
type Session struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Avatar     string `json:"avatar"`
	Bio        string `json:"bio"`
	CoverPhoto string `json:"coverPhoto"`
}

// NewSession projects u into a session.
func NewSession(u *User) *Session {
	return &Session{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Username:   u.Username,
		Avatar:     u.Avatar,
		Bio:        u.Bio,
		CoverPhoto: u.CoverPhoto,
	}
}
