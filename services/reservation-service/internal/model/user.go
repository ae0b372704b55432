package model

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
}

// Identity is the signed-in user as carried by the session.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

func (i Identity) Anonymous() bool { return i.UserID == "" || i.Username == "" }
