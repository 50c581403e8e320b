package supabase

import (
	"github.com/supabase-community/supabase-go"
	"sediment-analysis-backend/internal/config"
)

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

// NewClient builds the anon-key client used for token verification and
// realtime event publishing. Storage uses its own service-role client.
func NewClient(cfg *config.Config) (*Client, error) {
	key := cfg.SupabaseAnonKey
	if key == "" {
		key = cfg.SupabaseServiceKey
	}
	client, err := supabase.NewClient(cfg.SupabaseURL, key, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}
