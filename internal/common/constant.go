package common

// AuthHeaderName is the HTTP header that carries the access token on
// authenticated requests.
const AuthHeaderName = "Authorization"

// AuthScheme is the auth-scheme prefix expected in AuthHeaderName.
const AuthScheme = "Bearer"

// OTPLength is the number of digits in a one-time password.
const OTPLength = 6
