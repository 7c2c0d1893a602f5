package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/traitquest/traitquest/internal/domain"
)

// Login exchanges an OAuth provider ID token for a TraitQuest access token.
// It is the only call sent without a bearer header.
func (c *Client) Login(ctx context.Context, providerToken string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"token": providerToken},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", auth: true}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Regions lists the map regions and the player's status on each.
func (c *Client) Regions(ctx context.Context) ([]domain.Region, error) {
	var resp struct {
		Regions []domain.Region `json:"regions"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/map/regions", auth: true}, &resp); err != nil {
		return nil, err
	}
	return resp.Regions, nil
}

// CheckAccess asks whether the player may enter regionID.
func (c *Client) CheckAccess(ctx context.Context, regionID string) (*domain.AccessResult, error) {
	var res domain.AccessResult
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/map/check-access",
		query:  url.Values{"region_id": {regionID}},
		auth:   true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// StartQuest opens a quest over REST and returns its first question.
func (c *Client) StartQuest(ctx context.Context, questID domain.QuestID) (*domain.QuestResponse, error) {
	var resp domain.QuestResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/quests/" + url.PathEscape(string(questID)) + "/start",
		auth:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Interact submits an answer in a REST quest and returns the next step.
func (c *Client) Interact(ctx context.Context, req domain.InteractRequest) (*domain.QuestResponse, error) {
	var resp domain.QuestResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/quests/interact",
		body:   req,
		auth:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Report fetches the latest stored report for questID. A quest never
// finished yields a *StatusError with status 404.
func (c *Client) Report(ctx context.Context, questID domain.QuestID) (*domain.QuestReport, error) {
	var rep domain.QuestReport
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/quests/report/" + url.PathEscape(string(questID)),
		auth:   true,
	}, &rep)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
