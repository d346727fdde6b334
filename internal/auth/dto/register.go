package dto

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
