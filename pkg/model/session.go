package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// SecurityLevel is the clearance assigned to a top-level session.
// Levels form a total order: none < low < medium < high < quantum.
type SecurityLevel string

const (
	SecurityLevelNone    SecurityLevel = "none"
	SecurityLevelLow     SecurityLevel = "low"
	SecurityLevelMedium  SecurityLevel = "medium"
	SecurityLevelHigh    SecurityLevel = "high"
	SecurityLevelQuantum SecurityLevel = "quantum"
)

var securityLevelRank = map[SecurityLevel]int{
	SecurityLevelNone:    0,
	SecurityLevelLow:     1,
	SecurityLevelMedium:  2,
	SecurityLevelHigh:    3,
	SecurityLevelQuantum: 4,
}

// Validate checks if the security level is valid
func (l SecurityLevel) Validate() error {
	if _, ok := securityLevelRank[l]; !ok {
		return goerr.New("invalid security level", goerr.V("level", l))
	}
	return nil
}

// Rank returns the position of the level in the total order (none=0, quantum=4)
func (l SecurityLevel) Rank() int {
	return securityLevelRank[l]
}

// Active reports whether a session at this level counts as active.
// Sessions at level "none" are excluded from all list, count and watch results.
func (l SecurityLevel) Active() bool {
	return l != SecurityLevelNone && l != ""
}

// AuthenticationType declares which verification mechanism last touched a record
type AuthenticationType string

const (
	AuthTypePUF       AuthenticationType = "PUF"
	AuthTypeGMAK      AuthenticationType = "GMAK"
	AuthTypeBiMoType  AuthenticationType = "BiMoType"
	AuthTypeQuoreMind AuthenticationType = "QuoreMind"
)

// Validate checks if the authentication type is valid
func (a AuthenticationType) Validate() error {
	switch a {
	case AuthTypePUF, AuthTypeGMAK, AuthTypeBiMoType, AuthTypeQuoreMind:
		return nil
	default:
		return goerr.New("invalid authentication type", goerr.V("type", a))
	}
}

// Session is a top-level unit of work. It never carries a parent link;
// operations belonging to it reference its ID through Operation.ParentID.
type Session struct {
	ID            SessionID
	Name          string
	SecurityLevel SecurityLevel
	Authenticated bool
	Owner         string
	CreatedAt     time.Time
	AuthType      AuthenticationType

	// Trust parameters copied onto the record at creation for provenance
	LambdaAlpha float64
	LambdaBeta  float64

	// Last fingerprint measurement that accompanied a mutation
	AsymmetryMeasurement float64

	AuthHash string
}

// Validate checks structural invariants of a session
func (s *Session) Validate() error {
	if s.Name == "" {
		return goerr.New("session name is empty")
	}
	if err := s.SecurityLevel.Validate(); err != nil {
		return err
	}
	if s.AuthType != "" {
		if err := s.AuthType.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Operation is an ordered sub-step of a session. Order values among
// siblings form a contiguous sequence in creation order (0, 1, 2, ...).
type Operation struct {
	ID            SessionID
	Name          string
	ParentID      SessionID
	Order         int
	Authenticated bool
	Owner         string
	CreatedAt     time.Time
	AuthType      AuthenticationType
	AuthHash      string
}

// Validate checks structural invariants of an operation
func (o *Operation) Validate() error {
	if o.Name == "" {
		return goerr.New("operation name is empty")
	}
	if o.ParentID == "" {
		return goerr.New("operation has no parent session")
	}
	if o.Order < 0 {
		return goerr.New("operation order is negative", goerr.V("order", o.Order))
	}
	return nil
}
