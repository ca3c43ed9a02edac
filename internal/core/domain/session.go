package domain

import "time"

// Session represents a server-held login session bound to a client cookie.
// Its expiry is rolling: every authenticated request pushes ExpiresAt
// forward by the idle window, unlike the fixed-lifetime bearer token.
type Session struct {
	ID        string
	AccountID string
	Nickname  string
	IPFirst   *string
	IPLast    *string
	UserAgent *string
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
}

// IsActive reports whether the session is still valid at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at)
}

// Touch records activity and extends the rolling expiry window from now.
func (s *Session) Touch(at time.Time, idle time.Duration, ip, userAgent *string) {
	s.LastSeen = at
	s.ExpiresAt = at.Add(idle)
	if s.IPFirst == nil && ip != nil {
		ipCopy := *ip
		s.IPFirst = &ipCopy
	}
	if ip != nil {
		ipCopy := *ip
		s.IPLast = &ipCopy
	}
	if userAgent != nil {
		uaCopy := *userAgent
		s.UserAgent = &uaCopy
	}
}
