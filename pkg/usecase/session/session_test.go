package session_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tlacaelel666/guardian/pkg/adapter"
	"github.com/tlacaelel666/guardian/pkg/model"
	"github.com/tlacaelel666/guardian/pkg/policy"
	"github.com/tlacaelel666/guardian/pkg/repository"
	"github.com/tlacaelel666/guardian/pkg/trust"
	"github.com/tlacaelel666/guardian/pkg/usecase/session"
	"github.com/tlacaelel666/guardian/pkg/utils/logging"
)

type testEnv struct {
	repo     *repository.Memory
	auth     *adapter.MemoryAuth
	notifier *adapter.NotifyRecorder
	uc       *session.UseCase
}

func setupEnv(t *testing.T, opts ...session.Option) *testEnv {
	t.Helper()

	params := trust.DefaultParams()
	env := &testEnv{
		repo:     repository.NewMemory(),
		auth:     adapter.NewMemoryAuth(),
		notifier: adapter.NewNotifyRecorder(),
	}

	base := []session.Option{
		session.WithAuth(env.auth),
		session.WithNotifier(env.notifier),
		session.WithProbeDelays(time.Millisecond, 2*time.Millisecond),
	}
	env.uc = session.New(env.repo,
		trust.NewVerifier(params),
		trust.NewHashGenerator(params),
		params,
		append(base, opts...)...,
	)
	return env
}

// failingVerifier returns a verifier whose noise source pushes the
// measurement far outside tolerance.
func failingVerifier() *trust.Verifier {
	return trust.NewVerifier(trust.DefaultParams(), trust.WithRand(func() float64 { return 10 }))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCreateWithOperations(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "reactor calibration",
		SecurityLevel: model.SecurityLevelQuantum,
		AuthType:      model.AuthTypePUF,
		Operations: []session.OperationDraft{
			{Name: "align lattice", AuthType: model.AuthTypeGMAK},
			{Name: "measure drift", AuthType: model.AuthTypeGMAK},
			{Name: "seal chamber", AuthType: model.AuthTypeBiMoType},
		},
	})
	gt.NoError(t, err)
	gt.V(t, out.Session).NotNil()
	gt.NotEqual(t, out.Session.ID, model.SessionID(""))
	gt.Equal(t, out.Session.LambdaAlpha, 0.162494)
	gt.Equal(t, out.Session.LambdaBeta, 0.298753)
	gt.NotEqual(t, out.Session.AuthHash, "")
	gt.True(t, len(out.Session.AuthHash) <= trust.HashLength)

	gt.A(t, out.Operations).Length(3)
	for i, op := range out.Operations {
		gt.Equal(t, op.Order, i)
		gt.Equal(t, op.ParentID, out.Session.ID)
		gt.Equal(t, op.Owner, out.Session.Owner)
		gt.NotEqual(t, op.AuthHash, "")
		gt.True(t, len(op.AuthHash) <= trust.HashLength)
	}

	stored, err := env.repo.ListOperations(ctx, out.Session.ID)
	gt.NoError(t, err)
	gt.A(t, stored).Length(3)
	gt.Equal(t, stored[0].Name, "align lattice")
	gt.Equal(t, stored[2].Name, "seal chamber")
}

func TestCreateValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		SecurityLevel: model.SecurityLevelHigh,
	})
	gt.Error(t, err)

	_, err = env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "bad level",
		SecurityLevel: model.SecurityLevel("ultra"),
	})
	gt.Error(t, err)

	_, err = env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "bad auth",
		SecurityLevel: model.SecurityLevelLow,
		AuthType:      model.AuthenticationType("retina"),
	})
	gt.Error(t, err)
}

func TestCreateAbortsBatchOnInvalidDraft(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "partial batch",
		SecurityLevel: model.SecurityLevelMedium,
		Operations: []session.OperationDraft{
			{Name: "first step", AuthType: model.AuthTypeGMAK},
			{Name: "", AuthType: model.AuthTypeGMAK},
			{Name: "never written", AuthType: model.AuthTypeGMAK},
		},
	})
	gt.Error(t, err)

	// The session and the draft before the invalid one are committed
	gt.V(t, out).NotNil()
	gt.A(t, out.Operations).Length(1)

	stored, err := env.repo.ListOperations(ctx, out.Session.ID)
	gt.NoError(t, err)
	gt.A(t, stored).Length(1)
	gt.Equal(t, stored[0].Name, "first step")
}

func TestOwnerLocalIdentity(t *testing.T) {
	env := setupEnv(t)

	pattern := regexp.MustCompile(`^quantum-[0-9a-f-]{36}-[A-Za-z0-9+/=]{8}$`)
	owner := env.uc.Owner()
	gt.True(t, pattern.MatchString(owner))

	// Stable for the lifetime of the coordinator
	gt.Equal(t, env.uc.Owner(), owner)
}

func TestBootstrap(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	localOwner := env.uc.Owner()
	gt.NoError(t, env.uc.Bootstrap(ctx))

	external := env.uc.Owner()
	gt.NotEqual(t, external, localOwner)
	gt.A(t, env.notifier.Shown()).Length(0)
}

func TestBootstrapIntegrityGate(t *testing.T) {
	env := &testEnv{
		repo:     repository.NewMemory(),
		auth:     adapter.NewMemoryAuth(),
		notifier: adapter.NewNotifyRecorder(),
	}
	params := trust.DefaultParams()
	env.uc = session.New(env.repo, failingVerifier(), trust.NewHashGenerator(params), params,
		session.WithAuth(env.auth),
		session.WithNotifier(env.notifier),
	)

	err := env.uc.Bootstrap(context.Background())
	gt.True(t, errors.Is(err, model.ErrIntegrityFailure))

	shown := env.notifier.Shown()
	gt.A(t, shown).Length(1)
	gt.True(t, strings.HasPrefix(shown[0].Message, "SECURITY BREACH: "))
	gt.Equal(t, shown[0].Duration, 15*time.Second)
	gt.Equal(t, shown[0].ActionLabel, "Secure Close")
}

func TestBootstrapSignInFailureTolerated(t *testing.T) {
	env := setupEnv(t)
	env.auth.FailSignIn(errors.New("provider offline"))

	localOwner := env.uc.Owner()
	gt.NoError(t, env.uc.Bootstrap(context.Background()))
	gt.Equal(t, env.uc.Owner(), localOwner)
}

func TestUpdateStampsAsymmetry(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "stable session",
		SecurityLevel: model.SecurityLevelMedium,
	})
	gt.NoError(t, err)

	update := &model.Session{
		ID:            out.Session.ID,
		Name:          "stable session",
		SecurityLevel: model.SecurityLevelMedium,
		Authenticated: true,
		Owner:         out.Session.Owner,
	}
	gt.NoError(t, env.uc.Update(ctx, update))

	got, err := env.repo.GetSession(ctx, out.Session.ID)
	gt.NoError(t, err)
	gt.True(t, got.Authenticated)

	// The measured asymmetry sits within tolerance of the reference
	diff := got.AsymmetryMeasurement - 0.162494
	if diff < 0 {
		diff = -diff
	}
	gt.True(t, diff < trust.Tolerance)
}

func TestUpdateWarnsOnSecurityDowngrade(t *testing.T) {
	env := setupEnv(t)
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), logging.New("debug", &buf))

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "demoted session",
		SecurityLevel: model.SecurityLevelQuantum,
	})
	gt.NoError(t, err)

	update := &model.Session{
		ID:            out.Session.ID,
		Name:          "demoted session",
		SecurityLevel: model.SecurityLevelLow,
		Owner:         out.Session.Owner,
	}
	gt.NoError(t, env.uc.Update(ctx, update))
	gt.S(t, buf.String()).Contains("security level downgraded")

	got, err := env.repo.GetSession(ctx, out.Session.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.SecurityLevel, model.SecurityLevelLow)
}

func TestUpdateIntegrityGate(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "guarded session",
		SecurityLevel: model.SecurityLevelHigh,
	})
	gt.NoError(t, err)

	params := trust.DefaultParams()
	gated := session.New(env.repo, failingVerifier(), trust.NewHashGenerator(params), params,
		session.WithAuth(env.auth),
		session.WithNotifier(env.notifier),
	)

	update := &model.Session{
		ID:            out.Session.ID,
		Name:          "guarded session",
		SecurityLevel: model.SecurityLevelHigh,
		Authenticated: true,
		Owner:         out.Session.Owner,
	}
	err = gated.Update(ctx, update)
	gt.True(t, errors.Is(err, model.ErrIntegrityFailure))

	// Store untouched
	got, err := env.repo.GetSession(ctx, out.Session.ID)
	gt.NoError(t, err)
	gt.False(t, got.Authenticated)

	shown := env.notifier.Shown()
	gt.A(t, shown).Length(1)
	gt.True(t, strings.HasPrefix(shown[0].Message, "SECURITY BREACH: "))
}

func TestUpdateDeniedForNonOwner(t *testing.T) {
	engine, err := policy.New(context.Background(), "")
	gt.NoError(t, err)

	env := setupEnv(t, session.WithAuthz(engine))
	ctx := context.Background()

	id, err := env.repo.CreateSession(ctx, &model.Session{
		Name:          "someone else's session",
		SecurityLevel: model.SecurityLevelHigh,
		Owner:         "another-operator",
		CreatedAt:     time.Now(),
	})
	gt.NoError(t, err)

	err = env.uc.Update(ctx, &model.Session{
		ID:            id,
		Name:          "someone else's session",
		SecurityLevel: model.SecurityLevelHigh,
		Authenticated: true,
	})
	gt.True(t, errors.Is(err, model.ErrNotAuthorized))
	gt.A(t, env.notifier.Shown()).Length(1)
}

func TestDeleteCascade(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "doomed session",
		SecurityLevel: model.SecurityLevelHigh,
		Operations: []session.OperationDraft{
			{Name: "step one"},
			{Name: "step two"},
		},
	})
	gt.NoError(t, err)

	gt.NoError(t, env.uc.Delete(ctx, out.Session.ID))

	_, err = env.repo.GetSession(ctx, out.Session.ID)
	gt.True(t, errors.Is(err, model.ErrSessionNotFound))

	ops, err := env.repo.ListOperations(ctx, out.Session.ID)
	gt.NoError(t, err)
	gt.A(t, ops).Length(0)
}

func TestDeleteIntegrityGate(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "protected session",
		SecurityLevel: model.SecurityLevelHigh,
	})
	gt.NoError(t, err)

	params := trust.DefaultParams()
	gated := session.New(env.repo, failingVerifier(), trust.NewHashGenerator(params), params,
		session.WithAuth(env.auth),
		session.WithNotifier(env.notifier),
	)

	err = gated.Delete(ctx, out.Session.ID)
	gt.True(t, errors.Is(err, model.ErrIntegrityFailure))

	_, err = env.repo.GetSession(ctx, out.Session.ID)
	gt.NoError(t, err)
}

func TestLoaderEmptyStore(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.uc.StartLoader(ctx)

	waitFor(t, time.Second, env.uc.Ready)
	waitFor(t, time.Second, func() bool { return env.uc.Sessions() != nil })

	gt.A(t, env.uc.Sessions()).Length(0)
	gt.Equal(t, env.repo.SessionWatchCalls(), 0)
}

func TestLoaderRetriesUntilStoreAnswers(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := env.repo.CreateSession(ctx, &model.Session{
		Name:          "surviving session",
		SecurityLevel: model.SecurityLevelHigh,
		Owner:         "tester",
		CreatedAt:     time.Now(),
	})
	gt.NoError(t, err)

	env.repo.FailCounts(14, errors.New("store warming up"))
	env.uc.StartLoader(ctx)

	waitFor(t, 2*time.Second, env.uc.Ready)
	waitFor(t, 2*time.Second, func() bool { return len(env.uc.Sessions()) == 1 })

	gt.Equal(t, env.uc.Sessions()[0].Name, "surviving session")
	gt.A(t, env.notifier.Shown()).Length(0)
}

func TestLoaderGivesUpAfterRetryCap(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.repo.FailCounts(15, errors.New("store down hard"))
	env.uc.StartLoader(ctx)

	waitFor(t, 2*time.Second, func() bool { return len(env.notifier.Shown()) == 1 })
	waitFor(t, 2*time.Second, func() bool { return env.uc.Sessions() != nil })

	gt.False(t, env.uc.Ready())
	gt.A(t, env.uc.Sessions()).Length(0)
	gt.A(t, env.notifier.Shown()).Length(1)
}

func TestLoaderSupersededGenerationDropped(t *testing.T) {
	// Slow probe schedule keeps the first loader mid-retry while the
	// second one supersedes it.
	env := setupEnv(t, session.WithProbeDelays(50*time.Millisecond, 100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.repo.FailCounts(100, errors.New("store down"))
	env.uc.StartLoader(ctx)

	env.repo.FailCounts(0, nil)
	_, err := env.repo.CreateSession(ctx, &model.Session{
		Name:          "fresh session",
		SecurityLevel: model.SecurityLevelHigh,
		Owner:         "tester",
		CreatedAt:     time.Now(),
	})
	gt.NoError(t, err)

	env.uc.StartLoader(ctx)

	waitFor(t, 2*time.Second, env.uc.Ready)
	waitFor(t, 2*time.Second, func() bool { return len(env.uc.Sessions()) == 1 })

	// The cancelled generation neither overwrites the fresh list nor
	// reports its failure.
	time.Sleep(50 * time.Millisecond)
	gt.A(t, env.uc.Sessions()).Length(1)
	gt.Equal(t, env.uc.Sessions()[0].Name, "fresh session")
	gt.True(t, env.uc.Ready())
	gt.A(t, env.notifier.Shown()).Length(0)
}

func TestWatchSessionList(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := env.repo.CreateSession(ctx, &model.Session{
		Name:          "live session",
		SecurityLevel: model.SecurityLevelQuantum,
		Owner:         "tester",
		CreatedAt:     time.Now(),
	})
	gt.NoError(t, err)

	ch := env.uc.WatchSessionList(ctx)
	env.uc.StartLoader(ctx)

	select {
	case list := <-ch:
		gt.A(t, list).Length(1)
		gt.Equal(t, list[0].Name, "live session")
	case <-time.After(2 * time.Second):
		t.Fatal("no session list published")
	}
}

func TestWatchOperationsStream(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := env.uc.CreateWithOperations(ctx, &session.CreateInput{
		Name:          "streamed session",
		SecurityLevel: model.SecurityLevelMedium,
		Operations: []session.OperationDraft{
			{Name: "prime", AuthType: model.AuthTypeGMAK},
			{Name: "commit", AuthType: model.AuthTypeGMAK},
		},
	})
	gt.NoError(t, err)

	ch, err := env.uc.WatchOperations(ctx, out.Session.ID)
	gt.NoError(t, err)

	select {
	case list := <-ch:
		gt.A(t, list).Length(2)
		gt.Equal(t, list[0].Name, "prime")
		gt.Equal(t, list[1].Name, "commit")
		gt.Equal(t, list[1].Order, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no operation list published")
	}
}

func TestSignOutResetsSessionList(t *testing.T) {
	env := setupEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := env.repo.CreateSession(ctx, &model.Session{
		Name:          "live session",
		SecurityLevel: model.SecurityLevelHigh,
		Owner:         "tester",
		CreatedAt:     time.Now(),
	})
	gt.NoError(t, err)

	env.uc.StartLoader(ctx)
	waitFor(t, 2*time.Second, func() bool { return len(env.uc.Sessions()) == 1 })

	gt.NoError(t, env.uc.SignOut(ctx))
	gt.A(t, env.uc.Sessions()).Length(0)
}

func TestReport(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	now := time.Now()
	for i, s := range []*model.Session{
		{Name: "authenticated one", SecurityLevel: model.SecurityLevelHigh, Authenticated: true},
		{Name: "pending one", SecurityLevel: model.SecurityLevelLow},
	} {
		s.Owner = "tester"
		s.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		_, err := env.repo.CreateSession(ctx, s)
		gt.NoError(t, err)
	}

	report := env.uc.Report(ctx)
	gt.Equal(t, report.Authenticated, 1)
	gt.Equal(t, report.Total, 2)
	gt.Equal(t, report.LambdaAlpha, 0.162494)
	gt.Equal(t, report.LambdaBeta, 0.298753)
	gt.True(t, report.Secure)

	text := report.String()
	gt.True(t, strings.Contains(text, "--- GUARDIAN TRUST REPORT ---"))
	gt.True(t, strings.Contains(text, "System Status: SECURE"))
}
