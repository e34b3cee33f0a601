package repository

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/model"
)

// defaultCollection is the single document collection holding both sessions
// and operations.
const defaultCollection = "quantum_sessions"

// record is the persisted document shape. Sessions and operations share one
// collection and are discriminated by field presence: a session carries a
// security level and no parent link, an operation carries a parent link and
// an order. The API never exposes this union; decoding rejects documents
// that are neither shape.
type record struct {
	ID                   string    `firestore:"-"`
	SessionName          string    `firestore:"sessionName"`
	SecurityLevel        string    `firestore:"securityLevel,omitempty"`
	Authenticated        bool      `firestore:"authenticated"`
	Owner                string    `firestore:"owner"`
	CreatedTime          time.Time `firestore:"createdTime"`
	Order                *int      `firestore:"order,omitempty"`
	ParentID             string    `firestore:"parentId,omitempty"`
	AuthenticationType   string    `firestore:"authenticationType,omitempty"`
	LambdaAlpha          float64   `firestore:"lambdaAlpha,omitempty"`
	LambdaBeta           float64   `firestore:"lambdaBeta,omitempty"`
	AsymmetryMeasurement float64   `firestore:"asymmetryMeasurement,omitempty"`
	AuthHash             string    `firestore:"gmakHash,omitempty"`
}

func recordFromSession(s *model.Session) *record {
	return &record{
		ID:                   string(s.ID),
		SessionName:          s.Name,
		SecurityLevel:        string(s.SecurityLevel),
		Authenticated:        s.Authenticated,
		Owner:                s.Owner,
		CreatedTime:          s.CreatedAt,
		AuthenticationType:   string(s.AuthType),
		LambdaAlpha:          s.LambdaAlpha,
		LambdaBeta:           s.LambdaBeta,
		AsymmetryMeasurement: s.AsymmetryMeasurement,
		AuthHash:             s.AuthHash,
	}
}

func recordFromOperation(op *model.Operation) *record {
	order := op.Order
	return &record{
		ID:                 string(op.ID),
		SessionName:        op.Name,
		Authenticated:      op.Authenticated,
		Owner:              op.Owner,
		CreatedTime:        op.CreatedAt,
		Order:              &order,
		ParentID:           string(op.ParentID),
		AuthenticationType: string(op.AuthType),
		AuthHash:           op.AuthHash,
	}
}

func (r *record) isSession() bool {
	return r.ParentID == "" && r.SecurityLevel != ""
}

func (r *record) isOperation() bool {
	return r.ParentID != "" && r.Order != nil
}

func (r *record) toSession() (*model.Session, error) {
	if !r.isSession() {
		return nil, goerr.Wrap(model.ErrMalformedRecord, "record is not a session", goerr.V("id", r.ID))
	}
	return &model.Session{
		ID:                   model.SessionID(r.ID),
		Name:                 r.SessionName,
		SecurityLevel:        model.SecurityLevel(r.SecurityLevel),
		Authenticated:        r.Authenticated,
		Owner:                r.Owner,
		CreatedAt:            r.CreatedTime,
		AuthType:             model.AuthenticationType(r.AuthenticationType),
		LambdaAlpha:          r.LambdaAlpha,
		LambdaBeta:           r.LambdaBeta,
		AsymmetryMeasurement: r.AsymmetryMeasurement,
		AuthHash:             r.AuthHash,
	}, nil
}

func (r *record) toOperation() (*model.Operation, error) {
	if !r.isOperation() {
		return nil, goerr.Wrap(model.ErrMalformedRecord, "record is not an operation", goerr.V("id", r.ID))
	}
	return &model.Operation{
		ID:            model.SessionID(r.ID),
		Name:          r.SessionName,
		ParentID:      model.SessionID(r.ParentID),
		Order:         *r.Order,
		Authenticated: r.Authenticated,
		Owner:         r.Owner,
		CreatedAt:     r.CreatedTime,
		AuthType:      model.AuthenticationType(r.AuthenticationType),
		AuthHash:      r.AuthHash,
	}, nil
}

// mergeData renders the record as a field map for merge writes. Optional
// fields are included only when set so a merge never clears them.
func (r *record) mergeData() map[string]any {
	data := map[string]any{
		"sessionName":   r.SessionName,
		"authenticated": r.Authenticated,
		"owner":         r.Owner,
	}
	if !r.CreatedTime.IsZero() {
		data["createdTime"] = r.CreatedTime
	}
	if r.SecurityLevel != "" {
		data["securityLevel"] = r.SecurityLevel
	}
	if r.ParentID != "" {
		data["parentId"] = r.ParentID
	}
	if r.Order != nil {
		data["order"] = *r.Order
	}
	if r.AuthenticationType != "" {
		data["authenticationType"] = r.AuthenticationType
	}
	if r.LambdaAlpha != 0 {
		data["lambdaAlpha"] = r.LambdaAlpha
	}
	if r.LambdaBeta != 0 {
		data["lambdaBeta"] = r.LambdaBeta
	}
	if r.AsymmetryMeasurement != 0 {
		data["asymmetryMeasurement"] = r.AsymmetryMeasurement
	}
	if r.AuthHash != "" {
		data["gmakHash"] = r.AuthHash
	}
	return data
}
