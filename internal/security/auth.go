package security

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
)

// Operator is a desk account loaded from configuration.
type Operator struct {
	Username     string
	PasswordHash string
	Role         string
}

// Authenticator checks operator passwords and rate limits attempts per client.
type Authenticator struct {
	operators map[string]Operator
	tokens    TokenManager

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewAuthenticator(operators []Operator, tokens TokenManager, perMinute, burst int) *Authenticator {
	byName := make(map[string]Operator, len(operators))
	for _, op := range operators {
		byName[op.Username] = op
	}
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &Authenticator{
		operators: byName,
		tokens:    tokens,
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     burst,
	}
}

// Login returns an access token for valid credentials. client identifies
// the caller for rate limiting, usually the remote address.
func (a *Authenticator) Login(client, username, password string) (string, time.Time, error) {
	if !a.limiter(client).Allow() {
		return "", time.Time{}, ErrTooManyAttempts
	}
	op, ok := a.operators[username]
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.tokens.GenerateAccessToken(op.Username, op.Role)
}

func (a *Authenticator) limiter(client string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[client]
	if !ok {
		l = rate.NewLimiter(a.limit, a.burst)
		a.limiters[client] = l
	}
	return l
}

// HashPassword is used by tooling that writes operator entries.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
