package service

import (
	"context"
	"fmt"
	"regexp"

	"hubmirror/internal/domain"
)

// Option keys persisted in the options store.
const (
	OptionAPIToken      = "hubspot_api_token"
	OptionPostType      = "post_type"
	OptionPostStatus    = "post_status"
	OptionSyncEnabled   = "sync_enabled"
	OptionSyncInterval  = "sync_interval"
	OptionLastManual    = "last_manual_sync"
	OptionLastScheduled = "last_scheduled_sync"
)

// HubSpot private app access token shape.
var tokenRe = regexp.MustCompile(`^pat-[a-z0-9]{2,3}-[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// SettingsService reads importer settings at run time, falling back to the
// config-file defaults for keys never written through the settings surface.
type SettingsService struct {
	options  OptionStore
	defaults domain.Settings
}

func NewSettingsService(options OptionStore, defaults domain.Settings) *SettingsService {
	return &SettingsService{options: options, defaults: defaults}
}

func (s *SettingsService) Load(ctx context.Context) (domain.Settings, error) {
	st := s.defaults

	read := func(key string) (string, error) {
		return s.options.Get(ctx, key)
	}

	if v, err := read(OptionAPIToken); err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	} else if v != "" {
		st.APIToken = v
	}
	if v, err := read(OptionPostType); err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	} else if v != "" {
		st.PostType = v
	}
	if v, err := read(OptionPostStatus); err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	} else if domain.Status(v).Valid() {
		st.PostStatus = domain.Status(v)
	}
	if v, err := read(OptionSyncEnabled); err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	} else if v != "" {
		st.SyncEnabled = v == "1"
	}
	if v, err := read(OptionSyncInterval); err != nil {
		return st, fmt.Errorf("load settings: %w", err)
	} else if domain.Interval(v).Valid() {
		st.Interval = domain.Interval(v)
	}

	return st, nil
}

// Save validates against the allow-lists and persists every key. The token
// format check matches HubSpot private app access tokens.
func (s *SettingsService) Save(ctx context.Context, st domain.Settings) error {
	if st.APIToken != "" && !tokenRe.MatchString(st.APIToken) {
		return fmt.Errorf("invalid HubSpot API key format")
	}
	if !st.PostStatus.Valid() {
		return fmt.Errorf("invalid post status %q", st.PostStatus)
	}
	if !st.Interval.Valid() {
		return fmt.Errorf("invalid sync interval %q", st.Interval)
	}
	if st.PostType == "" {
		st.PostType = "post"
	}

	enabled := "0"
	if st.SyncEnabled {
		enabled = "1"
	}

	pairs := map[string]string{
		OptionAPIToken:     st.APIToken,
		OptionPostType:     st.PostType,
		OptionPostStatus:   string(st.PostStatus),
		OptionSyncEnabled:  enabled,
		OptionSyncInterval: string(st.Interval),
	}
	for key, value := range pairs {
		if err := s.options.Set(ctx, key, value); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return nil
}
