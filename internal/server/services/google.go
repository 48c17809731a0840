package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/models"
)

// googleTokenInfoURL validates Google ID tokens. Tests point it at a local
// httptest server.
var googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var googleHTTPClient = &http.Client{Timeout: 10 * time.Second}

// googleIssuers are the issuer values Google signs tokens with.
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var errInvalidGoogleToken = common.NewError(common.ErrorUnauthorized, "Invalid Google token")

// googleTokenClaims is the tokeninfo response; the endpoint renders every
// claim as a string.
type googleTokenClaims struct {
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

type googleUserInfo struct {
	GoogleID      string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// GoogleResult adds the account-was-created flag to a login result.
type GoogleResult struct {
	LoginResult
	NewUser bool
}

// GoogleOAuthConfig is the public client configuration handed to frontends.
type GoogleOAuthConfig struct {
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	Scope        string `json:"scope"`
	ResponseType string `json:"response_type"`
}

// GoogleAuth signs a user in with a Google ID token: the token is validated
// against the tokeninfo endpoint, then the account is looked up by Google
// subject, linked by email, or created with a generated username.
func (s *UserService) GoogleAuth(ctx context.Context, idToken string, ip string) (*GoogleResult, error) {
	if idToken == "" {
		return nil, common.NewValidationError("token", "This field is required.")
	}

	info, err := s.verifyGoogleToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !info.EmailVerified {
		return nil, common.NewError(common.ErrorUnauthorized, "Google email not verified")
	}

	user, created, err := s.getOrCreateGoogleUser(ctx, info)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Users(s.db).RecordLogin(ctx, user.ID, ip); err != nil {
		return nil, fmt.Errorf("error recording login: %w", err)
	}
	now := time.Now()
	user.LastLoginIP = ip
	user.LoginCount++
	user.LastLoginAt = &now

	tokens, err := s.issueTokens(ctx, s.db, user, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	return &GoogleResult{LoginResult: LoginResult{User: user, Tokens: tokens}, NewUser: created}, nil
}

// GoogleConfig returns the OAuth settings a frontend needs to start the
// sign-in flow. No secret leaves the server.
func (s *UserService) GoogleConfig() *GoogleOAuthConfig {
	return &GoogleOAuthConfig{
		ClientID:     s.config.GoogleClientID,
		RedirectURI:  s.config.GoogleRedirectURI,
		Scope:        "openid email profile",
		ResponseType: "token id_token",
	}
}

func (s *UserService) verifyGoogleToken(ctx context.Context, token string) (*googleUserInfo, error) {
	if s.config.GoogleClientID == "" {
		return nil, errInvalidGoogleToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		googleTokenInfoURL+"?id_token="+url.QueryEscape(token), nil)
	if err != nil {
		return nil, errInvalidGoogleToken
	}

	resp, err := googleHTTPClient.Do(req)
	if err != nil {
		return nil, errInvalidGoogleToken
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errInvalidGoogleToken
	}

	var claims googleTokenClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, errInvalidGoogleToken
	}

	if claims.Aud != s.config.GoogleClientID {
		return nil, errInvalidGoogleToken
	}

	validIssuer := false
	for _, iss := range googleIssuers {
		if claims.Iss == iss {
			validIssuer = true
			break
		}
	}
	if !validIssuer {
		return nil, errInvalidGoogleToken
	}

	exp, err := strconv.ParseInt(claims.Exp, 10, 64)
	if err != nil || time.Now().Unix() >= exp {
		return nil, errInvalidGoogleToken
	}

	return &googleUserInfo{
		GoogleID:      claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified == "true",
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}

func (s *UserService) getOrCreateGoogleUser(ctx context.Context, info *googleUserInfo) (*models.User, bool, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByGoogleID(ctx, info.GoogleID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	email := strings.ToLower(info.Email)

	user, err = repo.GetByEmail(ctx, email)
	if err == nil {
		if err := repo.LinkGoogle(ctx, user.ID, info.GoogleID, info.Picture); err != nil {
			return nil, false, err
		}
		user.GoogleID = info.GoogleID
		user.IsEmailVerified = true
		if info.Picture != "" {
			user.ProfilePicture = info.Picture
		}
		return user, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	username, err := s.generateGoogleUserName(ctx, info)
	if err != nil {
		return nil, false, err
	}

	// Google-created accounts have no password hash; password login stays
	// impossible until a reset sets one.
	user, err = repo.Create(ctx, &models.User{
		UserName:        username,
		Email:           email,
		FirstName:       info.GivenName,
		LastName:        info.FamilyName,
		IsActive:        true,
		IsEmailVerified: true,
		GoogleID:        info.GoogleID,
		ProfilePicture:  info.Picture,
	})
	if err != nil {
		return nil, false, fmt.Errorf("error creating user: %w", err)
	}

	return user, true, nil
}

// generateGoogleUserName derives a unique username from the Google profile:
// given+family name lowercased (email local part when empty), stripped to
// letters, digits and underscores, with a numeric suffix on collisions.
func (s *UserService) generateGoogleUserName(ctx context.Context, info *googleUserInfo) (string, error) {
	base := strings.ToLower(strings.ReplaceAll(info.GivenName+info.FamilyName, " ", ""))
	if base == "" {
		base = strings.ToLower(strings.SplitN(info.Email, "@", 2)[0])
	}

	var b strings.Builder
	for _, r := range base {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	base = b.String()
	if base == "" {
		base = "user"
	}

	repo := s.repomanager.Users(s.db)

	username := base
	for counter := 1; ; counter++ {
		taken, err := repo.UserNameExists(ctx, username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}
