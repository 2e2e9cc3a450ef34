package e2e

import (
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// RegisterSteps wires all step definitions to the scenario context.
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	sc.Step(`^the account "([^"]*)" is a registered issuer$`, tc.accountIsRegisteredIssuer)
	sc.Step(`^"([^"]*)" issues a credential to "([^"]*)" with metadata "([^"]*)"$`, tc.issuesCredential)
	sc.Step(`^"([^"]*)" revokes credential (\d+)$`, tc.revokesCredential)
	sc.Step(`^the administrator grants the "([^"]*)" role to "([^"]*)"$`, tc.adminGrantsRole)
	sc.Step(`^the administrator revokes the "([^"]*)" role from "([^"]*)"$`, tc.adminRevokesRole)
	sc.Step(`^"([^"]*)" grants the "([^"]*)" role to "([^"]*)"$`, tc.grantsRole)
	sc.Step(`^anyone looks up credential (\d+)$`, tc.looksUpCredential)

	sc.Step(`^the response status is (\d+)$`, tc.responseStatusIs)
	sc.Step(`^the error code is "([^"]*)"$`, tc.errorCodeIs)
	sc.Step(`^the credential id is (\d+)$`, tc.credentialIDIs)
	sc.Step(`^the credential issuer is "([^"]*)"$`, tc.credentialIssuerIs)
	sc.Step(`^credential (\d+) is (valid|invalid)$`, tc.credentialValidityIs)
	sc.Step(`^the account "([^"]*)" holds the "([^"]*)" role$`, tc.accountHoldsRole)
	sc.Step(`^the account "([^"]*)" does not hold the "([^"]*)" role$`, tc.accountDoesNotHoldRole)
}

func (tc *TestContext) accountIsRegisteredIssuer(account string) error {
	if err := tc.Do(http.MethodPost, "/registry/institutions", adminAccount, map[string]string{
		"account": account,
	}); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to register issuer %q: status %d, body %s",
			account, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) issuesCredential(caller, recipient, metadata string) error {
	return tc.Do(http.MethodPost, "/registry/credentials", caller, map[string]string{
		"recipient":    recipient,
		"metadata_ref": metadata,
	})
}

func (tc *TestContext) revokesCredential(caller string, id int) error {
	return tc.Do(http.MethodPost, fmt.Sprintf("/registry/credentials/%d/revoke", id), caller, nil)
}

func (tc *TestContext) adminGrantsRole(role, account string) error {
	return tc.grantsRole(adminAccount, role, account)
}

func (tc *TestContext) adminRevokesRole(role, account string) error {
	return tc.Do(http.MethodPost, "/registry/roles/revoke", adminAccount, map[string]string{
		"role":    role,
		"account": account,
	})
}

func (tc *TestContext) grantsRole(caller, role, account string) error {
	return tc.Do(http.MethodPost, "/registry/roles/grant", caller, map[string]string{
		"role":    role,
		"account": account,
	})
}

func (tc *TestContext) looksUpCredential(id int) error {
	return tc.Do(http.MethodGet, fmt.Sprintf("/registry/credentials/%d", id), "", nil)
}

func (tc *TestContext) responseStatusIs(status int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s",
			status, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) errorCodeIs(code string) error {
	value, err := tc.GetResponseField("error")
	if err != nil {
		return err
	}
	if value != code {
		return fmt.Errorf("expected error code %q, got %v", code, value)
	}
	return nil
}

func (tc *TestContext) credentialIDIs(id int) error {
	value, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	got, ok := value.(float64)
	if !ok || int(got) != id {
		return fmt.Errorf("expected credential id %d, got %v", id, value)
	}
	return nil
}

func (tc *TestContext) credentialIssuerIs(issuer string) error {
	value, err := tc.GetResponseField("issuer")
	if err != nil {
		return err
	}
	if value != issuer {
		return fmt.Errorf("expected issuer %q, got %v", issuer, value)
	}
	return nil
}

func (tc *TestContext) credentialValidityIs(id int, want string) error {
	if err := tc.Do(http.MethodGet, fmt.Sprintf("/registry/credentials/%d/valid", id), "", nil); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != http.StatusOK {
		return fmt.Errorf("validity lookup failed: status %d, body %s",
			tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	value, err := tc.GetResponseField("valid")
	if err != nil {
		return err
	}
	if value != (want == "valid") {
		return fmt.Errorf("expected credential %d to be %s, got valid=%v", id, want, value)
	}
	return nil
}

func (tc *TestContext) accountHoldsRole(account, role string) error {
	return tc.checkMembership(account, role, true)
}

func (tc *TestContext) accountDoesNotHoldRole(account, role string) error {
	return tc.checkMembership(account, role, false)
}

func (tc *TestContext) checkMembership(account, role string, want bool) error {
	if err := tc.Do(http.MethodGet, fmt.Sprintf("/registry/roles/%s/%s", role, account), "", nil); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != http.StatusOK {
		return fmt.Errorf("membership lookup failed: status %d, body %s",
			tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	value, err := tc.GetResponseField("member")
	if err != nil {
		return err
	}
	if value != want {
		return fmt.Errorf("expected member=%v for %s/%s, got %v", want, role, account, value)
	}
	return nil
}
