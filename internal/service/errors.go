package service

import "errors"

var (
	// ErrMissingToken means no HubSpot access token is configured.
	ErrMissingToken = errors.New("hubspot api token is not configured")

	// ErrSyncDisabled means a scheduled run fired while sync is turned off.
	ErrSyncDisabled = errors.New("automatic sync is disabled")

	// ErrAlreadyRunning means another sync run holds the run lock.
	ErrAlreadyRunning = errors.New("a sync run is already in progress")
)
