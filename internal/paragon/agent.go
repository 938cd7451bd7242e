package paragon

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// AgentClient implements Agent over HTTP.
type AgentClient struct {
	client *Client
	prefix string
	logger *zap.Logger
}

// NewAgentClient binds the agent API at prefix.
func NewAgentClient(c *Client, prefix string) *AgentClient {
	return &AgentClient{client: c, prefix: prefix, logger: c.logger.Named("agent")}
}

func (a *AgentClient) GetStatus(ctx context.Context) (*AgentStatus, error) {
	var status AgentStatus
	if err := a.client.post(ctx, a.prefix, "get-agent-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// OpenSession logs in and installs the returned session token on the
// shared Client.
func (a *AgentClient) OpenSession(ctx context.Context, creds Credentials) error {
	a.logger.Info("Opening session.", zap.String("user", creds.Username), zap.String("group", creds.GroupID))
	var resp struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := a.client.post(ctx, a.prefix, "open-session", creds, &resp); err != nil {
		return err
	}
	if resp.SessionToken == "" {
		return errors.New("open-session: no session token in response")
	}
	a.client.SetSessionToken(resp.SessionToken)
	return nil
}

// CloseSession ends the session. The local token is dropped even when the
// remote call fails.
func (a *AgentClient) CloseSession(ctx context.Context) error {
	a.logger.Info("Closing session.")
	defer a.client.SetSessionToken("")
	return a.client.post(ctx, a.prefix, "close-session", nil, nil)
}

func (a *AgentClient) OpenHardwareProfile(ctx context.Context, profileID string) error {
	a.logger.Info("Opening hardware profile.", zap.String("profile", profileID))
	body := map[string]string{"profileId": profileID}
	if err := a.client.post(ctx, a.prefix, "open-profile", body, nil); err != nil {
		return fmt.Errorf("open profile %q: %w", profileID, err)
	}
	return nil
}

func (a *AgentClient) StartApplication(ctx context.Context, name string) error {
	a.logger.Info("Starting application.", zap.String("app", name))
	body := map[string]string{"runFileName": name}
	if err := a.client.post(ctx, a.prefix, "start-atm", body, nil); err != nil {
		return fmt.Errorf("start %q: %w", name, err)
	}
	return nil
}

// GetUserGroups lists the groups creds may open a session in. It does not
// need an open session.
func (a *AgentClient) GetUserGroups(ctx context.Context, creds Credentials) ([]UserGroup, error) {
	a.logger.Info("Listing user groups.", zap.String("user", creds.Username))
	body := map[string]string{"username": creds.Username, "password": creds.Password}
	var resp struct {
		Groups []UserGroup `json:"groups"`
	}
	if err := a.client.post(ctx, a.prefix, "get-user-groups", body, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}
