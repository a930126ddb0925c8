package models

// CatalogEntry is one milestone as served by the catalog route.
type CatalogEntry struct {
	ID       string `json:"id"`
	ImageKey string `json:"imageKey"`
	Icon     string `json:"icon"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type CatalogResponse struct {
	Total      int            `json:"total"`
	Milestones []CatalogEntry `json:"milestones"`
}

// UnlockSet is the stored unlock set of one external user, in unlock order.
type UnlockSet struct {
	ExternalID string   `json:"externalId"`
	Milestones []string `json:"milestones"`
}

// SyncRequest binds a whole unlock set to an external id (set union on the server).
type SyncRequest struct {
	ExternalID string   `json:"externalId"`
	Milestones []string `json:"milestones"`
}

// UnlockRequest records a single unlock.
type UnlockRequest struct {
	ExternalID  string `json:"externalId"`
	MilestoneID string `json:"milestoneId"`
	ImageKey    string `json:"imageKey"`
	Locale      Locale `json:"locale"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
