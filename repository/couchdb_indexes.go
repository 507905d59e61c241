package repository

import (
	"fmt"

	"github.com/kasmail/kasmail-server/types"
)

// createJsonIndex creates (or keeps, couchdb answers "exists") a mango index over the given fields
func createJsonIndex(repo Repository, name string, fields ...string) error {
	couchRepo, ok := repo.(*CouchDBRepository)
	if !ok {
		return fmt.Errorf("index %s: %w", name, types.ErrBadRequest)
	}
	indexFields := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		indexFields = append(indexFields, map[string]interface{}{f: "asc"})
	}
	index := map[string]interface{}{
		"index": map[string]interface{}{
			"fields": indexFields,
		},
		"name": name,
		"type": "json",
		"ddoc": name,
	}
	c := couchRepo.GetClient()
	resp, rErr := c.R().SetBody(index).Post(fmt.Sprintf("%s/%s", couchRepo.GetDBName(), "_index"))
	if rErr != nil {
		return rErr
	}
	if resp.IsError() {
		return handleError(resp)
	}
	return nil
}

// CreateProfileUsernameIndex backs the username lookup of the recipient resolver
func CreateProfileUsernameIndex(profileRepo Repository) error {
	return createJsonIndex(profileRepo, "username-index", "username")
}

// CreateMinerActiveIndex backs the active pool query of the miner selector
func CreateMinerActiveIndex(minerRepo Repository) error {
	return createJsonIndex(minerRepo, "isActive-index", "isActive")
}
