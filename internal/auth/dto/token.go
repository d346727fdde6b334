package dto

// TokenPair carries a freshly issued token pair between the session service
// and the handler. The refresh token travels to the client only as a cookie,
// never in the response body.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
