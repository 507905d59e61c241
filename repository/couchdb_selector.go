package repository

import (
	"errors"

	"github.com/kasmail/kasmail-server/types"
)

const (
	Messages = "messages"
	Profiles = "profiles"
	Miners   = "miner_addresses"
)

type DBSelector interface {
	ChooseDB(dbName string) (Repository, error)
}

type CouchDBSelector struct {
	dbs []Repository
}

func NewCouchDBSelector() *CouchDBSelector {
	return &CouchDBSelector{}
}

// adds a database to the databse selector
func (c *CouchDBSelector) AddDB(db Repository) {
	c.dbs = append(c.dbs, db)
}

// returns the required database
func (c *CouchDBSelector) ChooseDB(dbName string) (Repository, error) {
	if len(c.dbs) == 0 {
		return nil, types.ErrNotFound
	}
	for i, r := range c.dbs {
		if r.GetDBName() == dbName {
			return c.dbs[i], nil
		}
	}
	return nil, types.ErrNotFound
}

// ConfigureCouchDB opens (and creates when missing) every named database and returns a selector over them
func ConfigureCouchDB(url, username, password string, dbNames ...string) (*CouchDBSelector, error) {
	selector := NewCouchDBSelector()
	var errs []error
	for _, name := range dbNames {
		repo, err := NewCouchDBRepository(url, name, username, password, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		selector.AddDB(repo)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return selector, nil
}
