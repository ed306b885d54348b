/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	clientCookieName = "pitchside_id"
	identityTTL      = 365 * 24 * time.Hour
)

// Identity issues and verifies the signed cookie that stands in for a
// user account. The subject is a random UUID and carries no other data.
type Identity struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func newIdentity(secret string, secure bool) (*Identity, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}

	return &Identity{
		secret: key,
		secure: secure,
		now:    time.Now,
	}, nil
}

func (id *Identity) sign(subject string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(identityTTL)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(id.secret)
}

func (id *Identity) parse(token string) (string, bool) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return id.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(id.now),
	)
	if err != nil {
		return "", false
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", false
	}

	return claims.Subject, true
}

// peek returns the caller's client id, or "" without issuing one.
func (id *Identity) peek(r *http.Request) string {
	c, err := r.Cookie(clientCookieName)
	if err != nil || c.Value == "" {
		return ""
	}

	sub, _ := id.parse(c.Value)

	return sub
}

// resolve returns the caller's client id. The cookie is non-nil when a new
// identity had to be issued and must be sent back.
func (id *Identity) resolve(r *http.Request) (string, *http.Cookie, error) {
	if sub := id.peek(r); sub != "" {
		return sub, nil, nil
	}

	sub := uuid.NewString()
	now := id.now()

	token, err := id.sign(sub, now)
	if err != nil {
		return "", nil, err
	}

	return sub, &http.Cookie{
		Name:     clientCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(identityTTL),
		MaxAge:   int(identityTTL / time.Second),
		HttpOnly: true,
		Secure:   id.secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// clientID is resolve for ordinary handlers, which can set the cookie directly.
func (id *Identity) clientID(w http.ResponseWriter, r *http.Request) string {
	sub, cookie, err := id.resolve(r)
	if err != nil {
		return ""
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	return sub
}
