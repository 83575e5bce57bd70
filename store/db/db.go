package db

import (
	"github.com/pkg/errors"

	"github.com/rackguard/rackguard/internal/profile"
	"github.com/rackguard/rackguard/store"
	"github.com/rackguard/rackguard/store/db/postgres"
)

// NewDBDriver creates the store driver for the profile. Vector search
// requires pgvector, so PostgreSQL is the only supported engine.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := postgres.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
