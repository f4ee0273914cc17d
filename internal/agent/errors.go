package agent

import (
	"context"
	"encoding/json"
	"fmt"

	dErrors "credon/pkg/domain-errors"
)

// agentErrorResponse is the shape ACA-Py style agents use for error bodies.
type agentErrorResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// classifyTransportError maps a failed round trip to a domain error. Context
// cancellation keeps its own code so callers can distinguish shutdown from a
// dead agent.
func classifyTransportError(ctx context.Context, role string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return dErrors.Wrap(err, dErrors.CodeTimeout, fmt.Sprintf("%s agent request timed out", role))
	}
	if ctx.Err() == context.Canceled {
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("%s agent request cancelled", role))
	}
	return dErrors.Wrap(err, dErrors.CodeAgentUnreachable, fmt.Sprintf("%s agent unreachable", role))
}

// classifyStatusError maps a non-2xx agent response to agent_rejected,
// surfacing the agent's own reason when the body carries one.
func classifyStatusError(role string, status int, body []byte) error {
	var errResp agentErrorResponse
	if json.Unmarshal(body, &errResp) == nil {
		reason := errResp.Reason
		if reason == "" {
			reason = errResp.Message
		}
		if reason != "" {
			return dErrors.New(dErrors.CodeAgentRejected,
				fmt.Sprintf("%s agent rejected request (status %d): %s", role, status, reason))
		}
	}
	return dErrors.New(dErrors.CodeAgentRejected,
		fmt.Sprintf("%s agent rejected request (status %d)", role, status))
}

// classifyDecodeError maps an unparseable success body to malformed_agent_response.
func classifyDecodeError(role string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeMalformedResponse,
		fmt.Sprintf("%s agent returned an unparseable response", role))
}
