package e2e

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"credon/internal/admintoken"
)

// devSigningKey matches the server default when ADMIN_SIGNING_KEY is unset.
const devSigningKey = "dev-secret-key-change-in-production"

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the credon service is running$`, tc.serviceIsRunning)

	ctx.Step(`^I register a holder with email "([^"]*)"$`, tc.registerHolder)
	ctx.Step(`^I fetch the holder by label$`, tc.fetchHolderByLabel)
	ctx.Step(`^I publish a proof configuration for owner "([^"]*)" requiring attribute "([^"]*)"$`, tc.publishProofConfig)
	ctx.Step(`^I fetch the current proof configuration for owner "([^"]*)"$`, tc.fetchCurrentProofConfig)

	ctx.Step(`^I POST to "([^"]*)" with empty body$`, tc.postWithEmptyBody)
	ctx.Step(`^I GET "([^"]*)"$`, tc.getPath)
	ctx.Step(`^I POST to "([^"]*)" without an admin token$`, tc.postWithoutAdminToken)
	ctx.Step(`^I have an admin token for operator "([^"]*)"$`, tc.mintAdminToken)
	ctx.Step(`^I POST to "([^"]*)" as admin with label "([^"]*)" and reason "([^"]*)"$`, tc.postAsAdminWithLabelAndReason)

	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
}

func (tc *TestContext) serviceIsRunning(ctx context.Context) error {
	if err := tc.GET("/health/live", nil); err != nil {
		return fmt.Errorf("service not reachable at %s: %w", tc.BaseURL, err)
	}
	if tc.GetLastResponseStatus() != http.StatusOK {
		return fmt.Errorf("liveness probe returned %d", tc.GetLastResponseStatus())
	}
	return nil
}

func (tc *TestContext) registerHolder(ctx context.Context, email string) error {
	// Unique per scenario run so repeated runs do not trip the
	// one-active-credential rule.
	unique := strings.Replace(email, "@", fmt.Sprintf("+%d@", time.Now().UnixNano()), 1)
	if err := tc.POST("/holders", map[string]any{"email": unique}); err != nil {
		return err
	}
	if label, err := tc.GetResponseField("label"); err == nil {
		tc.HolderLabel, _ = label.(string)
	}
	return nil
}

func (tc *TestContext) fetchHolderByLabel(ctx context.Context) error {
	if tc.HolderLabel == "" {
		return fmt.Errorf("no holder label saved from a previous step")
	}
	return tc.GET("/holders?label="+tc.HolderLabel, nil)
}

func (tc *TestContext) publishProofConfig(ctx context.Context, owner, attribute string) error {
	return tc.POST("/proof-configs", map[string]any{
		"ownerLabel": owner,
		"credDefId":  "default:3:CL:10:tag",
		"attributes": []string{attribute},
	})
}

func (tc *TestContext) fetchCurrentProofConfig(ctx context.Context, owner string) error {
	return tc.GET("/proof-configs/current?owner="+owner, nil)
}

func (tc *TestContext) postWithEmptyBody(ctx context.Context, path string) error {
	return tc.POST(path, map[string]any{})
}

func (tc *TestContext) getPath(ctx context.Context, path string) error {
	return tc.GET(path, nil)
}

func (tc *TestContext) postWithoutAdminToken(ctx context.Context, path string) error {
	return tc.POST(path, map[string]any{"label": "nobody", "reason": "test"})
}

func (tc *TestContext) mintAdminToken(ctx context.Context, operator string) error {
	key := os.Getenv("ADMIN_SIGNING_KEY")
	if key == "" {
		key = devSigningKey
	}
	token, err := admintoken.NewService(key, time.Hour).Issue(operator)
	if err != nil {
		return fmt.Errorf("failed to mint admin token: %w", err)
	}
	tc.AdminToken = token
	return nil
}

func (tc *TestContext) postAsAdminWithLabelAndReason(ctx context.Context, path, label, reason string) error {
	return tc.POSTWithHeaders(path,
		map[string]any{"label": label, "reason": reason},
		map[string]string{"Authorization": "Bearer " + tc.AdminToken},
	)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s",
			expectedStatus, actualStatus, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected field %s to equal %q but got %v", field, expected, value)
	}
	return nil
}
