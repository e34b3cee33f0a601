package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tlacaelel666/guardian/pkg/model"
)

// Report summarizes the trust state of the workspace
type Report struct {
	Authenticated int
	Total         int
	LambdaAlpha   float64
	LambdaBeta    float64
	Secure        bool
	GeneratedAt   time.Time
}

// Report runs a fresh fingerprint check and summarizes the active sessions.
// A store read failure is reported and degrades to an empty listing rather
// than failing the report.
func (u *UseCase) Report(ctx context.Context) *Report {
	sessions, err := u.repo.ListActiveSessions(ctx)
	if err != nil {
		u.reportError(ctx, model.ClassifyStoreError(err))
		sessions = nil
	}

	authenticated := 0
	for _, s := range sessions {
		if s.Authenticated {
			authenticated++
		}
	}

	m := u.verifier.Verify()

	return &Report{
		Authenticated: authenticated,
		Total:         len(sessions),
		LambdaAlpha:   u.params.LambdaAlpha,
		LambdaBeta:    u.params.LambdaBeta,
		Secure:        m.Valid,
		GeneratedAt:   u.now(),
	}
}

// String renders the report in its canonical text form
func (r *Report) String() string {
	status := "COMPROMISED"
	if r.Secure {
		status = "SECURE"
	}

	return fmt.Sprintf(`--- GUARDIAN TRUST REPORT ---
Active Sessions: %d
Total Sessions: %d
Hardware λ^ Parameter: %v
Hardware λ² Parameter: %v
System Status: %s
Generated: %s
--- END REPORT ---
`, r.Authenticated, r.Total, r.LambdaAlpha, r.LambdaBeta, status, r.GeneratedAt.Format(time.RFC3339))
}
