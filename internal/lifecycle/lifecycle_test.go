package lifecycle_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credon/internal/agent"
	"credon/internal/audit"
	"credon/internal/holder/models"
	holderstore "credon/internal/holder/store"
	"credon/internal/lifecycle"
	pcmodels "credon/internal/proofconfig/models"
	pcstore "credon/internal/proofconfig/store"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/domain"

	"github.com/google/uuid"
)

func unmarshal(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}

const verifierLabel = domain.Label("verifier-main")

type fixture struct {
	orch     *lifecycle.Orchestrator
	verifier *fakeVerifier
	issuer   *fakeIssuer
	holders  *holderstore.InMemoryStore
	configs  *pcstore.InMemoryStore
	audit    *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	f := &fixture{
		verifier: &fakeVerifier{},
		issuer:   &fakeIssuer{},
		holders:  holderstore.New(),
		configs:  pcstore.New(),
		audit:    audit.NewMemoryStore(),
	}
	cfg := lifecycle.Config{
		VerifierLabel:     verifierLabel,
		SchemaID:          "schema:1.0",
		CredDefID:         "creddef:tag",
		ProofPollInterval: time.Millisecond,
		ProofPollTimeout:  100 * time.Millisecond,
		CredExAttempts:    2,
		CredExDelay:       time.Millisecond,
	}
	f.orch = lifecycle.New(cfg, f.verifier, f.issuer, f.holders, f.configs,
		audit.NewPublisher(f.audit, logger), logger)
	return f
}

func (f *fixture) withProofConfig(t *testing.T) {
	t.Helper()
	require.NoError(t, f.configs.Append(context.Background(), &pcmodels.Config{
		ID:         uuid.New(),
		OwnerLabel: verifierLabel,
		CredDefID:  "creddef:other-issuer",
		Attributes: []string{"email"},
		CreatedAt:  time.Now(),
	}))
}

func (f *fixture) withConnection(label string) {
	f.verifier.connections = append(f.verifier.connections,
		agent.Connection{ConnectionID: "conn-" + label, TheirLabel: label, State: "active"})
}

func TestNewHolderRegisteredAfterVerifiedProof(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.proofStates = []agent.ProofExchange{
		{PresExID: "pres-1", State: agent.ProofStateRequestSent},
		verifiedProof("alice@example.com"),
	}

	result, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionRegistered, result.Action)
	require.NotNil(t, result.Record)
	assert.Equal(t, models.StatusPending, result.Record.Status)
	assert.Equal(t, domain.HashContact("alice@example.com"), result.Record.ContactID)
	assert.Equal(t, domain.ConnectionID("conn-holder-aaaa1111"), result.Record.ConnectionID)

	// The consumed exchange is cleaned up.
	assert.Contains(t, f.verifier.deletedExchanges, "pres-1")

	events, err := f.audit.ListByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionHolderRegistered, events[0].Action)
}

func TestUnverifiedProofLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.proofStates = []agent.ProofExchange{
		{PresExID: "pres-1", State: agent.ProofStateDone, Verified: "false"},
	}

	_, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeProofNotVerified))

	recs, listErr := f.holders.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, recs)
	assert.Contains(t, f.verifier.deletedExchanges, "pres-1")
}

func TestProofTimeoutAbandonsExchange(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	// Never reaches a terminal state.
	f.verifier.proofStates = []agent.ProofExchange{
		{PresExID: "pres-1", State: agent.ProofStateRequestSent},
	}

	_, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeProofTimeout))
	assert.Contains(t, f.verifier.deletedExchanges, "pres-1")

	recs, listErr := f.holders.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, recs)
}

func TestActiveHolderReconnectIsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-bbbb2222")
	f.verifier.proofStates = []agent.ProofExchange{verifiedProof("alice@example.com")}

	existing := models.NewRecord("holder-aaaa1111", domain.HashContact("alice@example.com"), time.Now())
	existing.Status = models.StatusValid
	require.NoError(t, f.holders.Save(context.Background(), existing))

	_, err := f.orch.HandleConnection(context.Background(), "holder-bbbb2222")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateCred))
}

func TestRevokedHolderReconnectIsRefused(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-bbbb2222")
	f.verifier.proofStates = []agent.ProofExchange{verifiedProof("alice@example.com")}

	existing := models.NewRecord("holder-aaaa1111", domain.HashContact("alice@example.com"), time.Now())
	existing.Status = models.StatusRevoked
	require.NoError(t, f.holders.Save(context.Background(), existing))

	_, err := f.orch.HandleConnection(context.Background(), "holder-bbbb2222")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredRevoked))

	// The revoked record is untouched.
	rec, findErr := f.holders.FindByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusRevoked, rec.Status)
}

func TestPendingHolderReconnectAwaitsClaims(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.proofStates = []agent.ProofExchange{verifiedProof("alice@example.com")}

	existing := models.NewRecord("holder-aaaa1111", domain.HashContact("alice@example.com"), time.Now())
	require.NoError(t, f.holders.Save(context.Background(), existing))

	result, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionAwaitingClaims, result.Action)
}

func TestPendingHolderReconnectRefreshesConnection(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.proofStates = []agent.ProofExchange{verifiedProof("alice@example.com")}

	existing := models.NewRecord("holder-aaaa1111", domain.HashContact("alice@example.com"), time.Now())
	existing.ConnectionID = "conn-old"
	require.NoError(t, f.holders.Save(context.Background(), existing))

	result, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionAwaitingClaims, result.Action)

	// The record follows the surviving connection so issuance can use it.
	rec, findErr := f.holders.FindByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, findErr)
	assert.Equal(t, domain.ConnectionID("conn-holder-aaaa1111"), rec.ConnectionID)
}

func TestConcurrentConnectionEventsCollapse(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.proofStates = []agent.ProofExchange{verifiedProof("alice@example.com")}

	entered := make(chan struct{})
	release := make(chan struct{})
	f.verifier.listEntered = entered
	f.verifier.listRelease = release

	type outcome struct {
		result *lifecycle.ConnectionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
		done <- outcome{result, err}
	}()
	<-entered

	// The first event is mid-flow; a second one for the same label collapses.
	second, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionInFlight, second.Action)
	assert.Nil(t, second.Record)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, lifecycle.ActionRegistered, first.result.Action)

	recs, listErr := f.holders.List(context.Background())
	require.NoError(t, listErr)
	assert.Len(t, recs, 1)
}

func TestDuplicateConnectionsDeleted(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.connections = append(f.verifier.connections,
		agent.Connection{ConnectionID: "conn-extra", TheirLabel: "holder-aaaa1111", State: "active"})
	f.verifier.proofStates = []agent.ProofExchange{verifiedProof("alice@example.com")}

	result, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionRegistered, result.Action)
	assert.Equal(t, domain.ConnectionID("conn-holder-aaaa1111"), result.Record.ConnectionID)
	assert.Contains(t, f.verifier.deletedConnections, "conn-extra")
	assert.NotContains(t, f.verifier.deletedConnections, "conn-holder-aaaa1111")
}

func TestNoProofConfigRegistersOnConnection(t *testing.T) {
	f := newFixture(t)
	f.withConnection("holder-aaaa1111")

	result, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionRegistered, result.Action)
	assert.True(t, result.Record.ContactID.IsNil())
	// No proof flow happened.
	assert.Zero(t, f.verifier.pollCalls)
}

func TestTransportFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.withProofConfig(t)
	f.withConnection("holder-aaaa1111")
	f.verifier.proofStates = []agent.ProofExchange{{PresExID: "pres-1", State: agent.ProofStateRequestSent}}
	f.verifier.getErr = dErrors.New(dErrors.CodeAgentUnreachable, "verifier agent unreachable")

	_, err := f.orch.HandleConnection(context.Background(), "holder-aaaa1111")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAgentUnreachable))

	recs, listErr := f.holders.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, recs)
}

func registerPending(t *testing.T, f *fixture, label domain.Label, email string) *models.Record {
	t.Helper()
	rec := models.NewRecord(label, domain.HashContact(email), time.Now())
	rec.ConnectionID = domain.ConnectionID("conn-" + label.String())
	require.NoError(t, f.holders.Save(context.Background(), rec))
	return rec
}

func TestIssueDrivesPendingToValid(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	claims := map[string]string{"email": "alice@example.com", "role": "member"}
	rec, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, rec.Status)
	assert.Equal(t, claims, rec.Claims)
	assert.Equal(t, domain.CredExchangeID("cred-ex-1"), rec.CredentialExchangeID)

	// Agent-side record consumed and deleted.
	assert.Contains(t, f.issuer.deletedExchanges, "cred-ex-1")

	events, err := f.audit.ListByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCredentialIssued, events[0].Action)
}

func TestIssueReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	claims := map[string]string{"email": "alice@example.com"}
	first, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
	require.NoError(t, err)

	second, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	// Only one offer went out.
	assert.Len(t, f.issuer.offers, 1)
}

func TestConcurrentIssueSendsOneOffer(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.issuer.offerEntered = entered
	f.issuer.offerRelease = release

	claims := map[string]string{"email": "alice@example.com"}
	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
		done <- err
	}()
	<-entered

	// The first issuance is between the offer and the status change; a
	// second one for the same holder must not reach the agent.
	_, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, f.issuer.offers, 1)

	rec, findErr := f.holders.FindByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusValid, rec.Status)
}

func TestIssueLostRaceCleansUpExchange(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	// A second pending record for the same contact, as left behind by an
	// interrupted earlier flow.
	second := models.NewRecord("holder-bbbb2222", domain.HashContact("alice@example.com"), time.Now())
	second.ConnectionID = "conn-holder-bbbb2222"
	require.NoError(t, f.holders.Save(context.Background(), second))

	claims := map[string]string{"email": "alice@example.com"}
	_, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
	require.NoError(t, err)

	f.issuer.offerCredEx = "cred-ex-2"
	_, err = f.orch.Issue(context.Background(), "holder-bbbb2222", claims, "123456")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// The losing offer's agent-side record does not linger, and the loser
	// never became a second active credential.
	assert.Contains(t, f.issuer.deletedExchanges, "cred-ex-2")
	rec, findErr := f.holders.FindByLabel(context.Background(), "holder-bbbb2222")
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusPending, rec.Status)
}

func TestIssueFindsExchangeWhenOfferOmitsIt(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = ""
	f.issuer.exchanges = []agent.CredentialExchange{
		{CredExID: "cred-ex-late", ConnectionID: "conn-holder-aaaa1111", State: agent.CredExStateOfferSent},
	}
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	rec, err := f.orch.Issue(context.Background(), "holder-aaaa1111",
		map[string]string{"email": "alice@example.com"}, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.CredExchangeID("cred-ex-late"), rec.CredentialExchangeID)
}

func TestIssueExchangeNeverAppears(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = ""
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	_, err := f.orch.Issue(context.Background(), "holder-aaaa1111",
		map[string]string{"email": "alice@example.com"}, "123456")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))

	// Status never moved.
	rec, findErr := f.holders.FindByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusPending, rec.Status)
}

func TestClaimsRoundTripThroughRevokeAndReinstate(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	claims := map[string]string{"email": "alice@example.com", "role": "member", "tier": "gold"}
	issued, err := f.orch.Issue(context.Background(), "holder-aaaa1111", claims, "123456")
	require.NoError(t, err)

	prop := &recordingPropagator{}
	revoked, err := f.orch.Revoke(context.Background(), prop, "holder-aaaa1111", "membership lapsed", "ops@corp")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, revoked.Status)
	assert.Equal(t, issued.CredentialExchangeID, prop.rec.CredentialExchangeID)

	f.issuer.offerCredEx = "cred-ex-2"
	reinstated, err := f.orch.Reinstate(context.Background(), "holder-aaaa1111", "ops@corp")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReinstated, reinstated.Status)
	assert.Equal(t, claims, reinstated.Claims)
	assert.Equal(t, domain.CredExchangeID("cred-ex-2"), reinstated.CredentialExchangeID)
}

func TestRevokeRequiresActiveCredential(t *testing.T) {
	f := newFixture(t)
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")

	prop := &recordingPropagator{}
	_, err := f.orch.Revoke(context.Background(), prop, "holder-aaaa1111", "x", "ops@corp")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Nil(t, prop.rec)
}

func TestRevokePropagationFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")
	_, err := f.orch.Issue(context.Background(), "holder-aaaa1111",
		map[string]string{"email": "alice@example.com"}, "123456")
	require.NoError(t, err)

	prop := &recordingPropagator{err: dErrors.New(dErrors.CodeAgentUnreachable, "issuer down")}
	_, err = f.orch.Revoke(context.Background(), prop, "holder-aaaa1111", "x", "ops@corp")
	require.Error(t, err)

	rec, findErr := f.holders.FindByLabel(context.Background(), "holder-aaaa1111")
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusValid, rec.Status)
}

func TestReinstateOnlyFromRevoked(t *testing.T) {
	f := newFixture(t)
	f.issuer.offerCredEx = "cred-ex-1"
	registerPending(t, f, "holder-aaaa1111", "alice@example.com")
	_, err := f.orch.Issue(context.Background(), "holder-aaaa1111",
		map[string]string{"email": "alice@example.com"}, "123456")
	require.NoError(t, err)

	_, err = f.orch.Reinstate(context.Background(), "holder-aaaa1111", "ops@corp")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

type recordingPropagator struct {
	rec *models.Record
	err error
}

func (p *recordingPropagator) Propagate(_ context.Context, rec *models.Record, _ domain.CredDefID, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.rec = rec
	return nil
}
