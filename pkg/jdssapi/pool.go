package jdssapi

import "context"

// PoolStats is the appliance's pool-level capacity record.
type PoolStats struct {
	Name      string `json:"name"`
	Size      string `json:"size"`
	Available string `json:"available"`
	Health    string `json:"health"`
}

// GetPoolStats issues GET /pools/<pool>.
func (a *API) GetPoolStats(ctx context.Context) (*PoolStats, error) {
	var stats PoolStats
	if err := a.get(ctx, "pool", "", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
