package admintoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credon/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", time.Minute)

	token, err := svc.Issue("ops@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Operator)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewService("key-a", time.Minute).Issue("ops")
	require.NoError(t, err)

	_, err = NewService("key-b", time.Minute).Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("key", -time.Minute)
	token, err := svc.Issue("ops")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewService("key", time.Minute).Validate("not-a-token")
	assert.Error(t, err)
}
