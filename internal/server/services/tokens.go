package services

// TokenPair is one issued access/refresh token pair. The access token is a
// signed JWT, the refresh token an opaque server-stored string.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
