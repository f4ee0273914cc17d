package lifecycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credon/internal/agent"
	"credon/internal/lifecycle"
	dErrors "credon/pkg/domain-errors"
)

type fakeHolderAgent struct {
	states     []string
	getCalls   int
	pings      int
	pingErr    error
	receiveErr error
}

func (f *fakeHolderAgent) ReceiveInvitation(context.Context, map[string]any) (*agent.Connection, error) {
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	return &agent.Connection{ConnectionID: "conn-1", State: "invitation"}, nil
}

func (f *fakeHolderAgent) GetConnection(context.Context, string) (*agent.Connection, error) {
	idx := f.getCalls
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	f.getCalls++
	return &agent.Connection{ConnectionID: "conn-1", State: f.states[idx]}, nil
}

func (f *fakeHolderAgent) SendTrustPing(context.Context, string) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	f.pings++
	return nil
}

func newBootstrap(accepter *fakeHolderAgent) *lifecycle.Bootstrap {
	return lifecycle.NewBootstrap(&fakeVerifier{}, accepter, nil)
}

func TestAcceptInvitationSettlesAndPings(t *testing.T) {
	accepter := &fakeHolderAgent{states: []string{"request", agent.ConnectionStateResponse}}
	b := newBootstrap(accepter)
	b.SetRetry(3, 0)

	connID, err := b.AcceptInvitation(context.Background(), map[string]any{"@type": "invitation"})
	require.NoError(t, err)
	assert.Equal(t, "conn-1", connID)
	assert.Equal(t, 1, accepter.pings)
}

func TestAcceptInvitationExhaustsRetries(t *testing.T) {
	accepter := &fakeHolderAgent{states: []string{"request"}}
	b := newBootstrap(accepter)
	b.SetRetry(3, 0)

	_, err := b.AcceptInvitation(context.Background(), map[string]any{"@type": "invitation"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConnectionFailed))
	assert.Equal(t, 3, accepter.getCalls)
	assert.Zero(t, accepter.pings)
}

func TestAcceptInvitationReceiveFailure(t *testing.T) {
	accepter := &fakeHolderAgent{
		receiveErr: dErrors.New(dErrors.CodeAgentUnreachable, "holder agent unreachable"),
	}
	b := newBootstrap(accepter)

	_, err := b.AcceptInvitation(context.Background(), map[string]any{"@type": "invitation"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAgentUnreachable))
}
