// workers/milestone_sync_client.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"community-milestones/models"
	"community-milestones/unlock"
	"community-milestones/utils"
)

// MilestoneSyncClient talks to the remote milestone endpoint. It satisfies unlock.Remote.
type MilestoneSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

var _ unlock.Remote = (*MilestoneSyncClient)(nil)

func NewMilestoneSyncClient(baseURL, token string) (*MilestoneSyncClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("milestone API URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid milestone API URL %q: %w", baseURL, err)
	}
	return &MilestoneSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: utils.HTTPClient,
	}, nil
}

func (c *MilestoneSyncClient) SaveUnlock(ctx context.Context, req unlock.UnlockRequest) error {
	var resp models.SuccessResponse
	if err := c.do(ctx, http.MethodPost, "unlock", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("unlock of %q rejected", req.MilestoneID)
	}
	return nil
}

func (c *MilestoneSyncClient) SaveBinding(ctx context.Context, externalID string, milestoneIDs []string) error {
	if milestoneIDs == nil {
		milestoneIDs = []string{}
	}
	body := models.SyncRequest{ExternalID: externalID, Milestones: milestoneIDs}
	var resp models.SuccessResponse
	if err := c.do(ctx, http.MethodPost, "sync", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("sync for %s rejected", externalID)
	}
	return nil
}

func (c *MilestoneSyncClient) FetchUnlocked(ctx context.Context, externalID string) ([]string, error) {
	var resp models.UnlockSet
	if err := c.do(ctx, http.MethodGet, externalID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Milestones, nil
}

// FetchCatalog returns the server's view of the milestone catalog.
func (c *MilestoneSyncClient) FetchCatalog(ctx context.Context) (models.CatalogResponse, error) {
	var resp models.CatalogResponse
	err := c.do(ctx, http.MethodGet, "catalog", nil, &resp)
	return resp, err
}

func (c *MilestoneSyncClient) do(ctx context.Context, method, path string, in, out any) error {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid milestone API URL '%s': %w", c.BaseURL, err)
	}
	finalURL := base.JoinPath("api", "milestones", path).String()

	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, finalURL, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, finalURL, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Service-Token", c.Token)

	client := c.HTTPClient
	if client == nil {
		client = utils.HTTPClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, finalURL, err)
	}
	defer utils.DrainAndClose(resp)

	if err := utils.CheckResponse(resp); err != nil {
		log.Printf("[SYNC] ❌ %s %s returned %v", method, finalURL, err)
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", finalURL, err)
	}
	log.Printf("[SYNC] ➡️  %s %s (%s)", method, finalURL, time.Since(start).Round(time.Millisecond))
	return nil
}
