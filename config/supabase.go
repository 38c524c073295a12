package config

import (
	"fmt"
	"os"

	supa "github.com/supabase-community/supabase-go"
)

var SupabaseClient *supa.Client

// InitSupabase initializes the Supabase client from SUPABASE_URL and
// SUPABASE_SERVICE_KEY. Both are required: the pipeline writes with the
// service role, and shipping a fallback key in source is not an option.
func InitSupabase() error {
	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is not set")
	}
	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is not set")
	}

	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return fmt.Errorf("initializing Supabase client: %w", err)
	}

	SupabaseClient = client
	return nil
}

// GetSupabaseURL returns the Supabase project URL used for storage requests.
func GetSupabaseURL() string {
	return os.Getenv("SUPABASE_URL")
}

// GetSupabaseKey returns the service key used for storage requests.
func GetSupabaseKey() string {
	return os.Getenv("SUPABASE_SERVICE_KEY")
}
