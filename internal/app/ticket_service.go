package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const ticketIssuer = "beergame"

// TicketClaims identifies the team a resume ticket was issued for.
type TicketClaims struct {
	SessionID string
	TeamID    string
	ExpiresAt time.Time
}

// TicketService signs and verifies HS256 team resume tickets.
type TicketService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTicketService creates a ticket service. A zero ttl issues tickets that never expire.
func NewTicketService(secret string, ttl time.Duration) (*TicketService, error) {
	if secret == "" {
		return nil, fmt.Errorf("ticket secret is required")
	}
	return &TicketService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a ticket for a team of a session.
func (s *TicketService) Issue(sessionID, teamID string) (string, error) {
	if sessionID == "" || teamID == "" {
		return "", fmt.Errorf("session and team are required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"iss": ticketIssuer,
		"sid": sessionID,
		"tid": teamID,
		"iat": now.Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks a ticket's signature and expiry and returns its claims.
func (s *TicketService) Verify(ticket string) (TicketClaims, error) {
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	token, err := parser.Parse(ticket, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return TicketClaims{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return TicketClaims{}, ErrInvalidTicket
	}
	if !claims.VerifyIssuer(ticketIssuer, true) {
		return TicketClaims{}, fmt.Errorf("%w: wrong issuer", ErrInvalidTicket)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), false) {
		return TicketClaims{}, fmt.Errorf("%w: expired", ErrInvalidTicket)
	}

	sid, _ := claims["sid"].(string)
	tid, _ := claims["tid"].(string)
	if sid == "" || tid == "" {
		return TicketClaims{}, fmt.Errorf("%w: missing session or team", ErrInvalidTicket)
	}
	out := TicketClaims{SessionID: sid, TeamID: tid}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
