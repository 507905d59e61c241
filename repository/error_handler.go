package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

func handleError(resp *resty.Response) error {
	if resp.StatusCode() == 404 {
		return types.ErrNotFound
	}
	if resp.StatusCode() == 409 {
		return types.ErrConflict
	}
	if resp.IsError() {
		var dbErr types.CouchDBError
		uErr := json.Unmarshal(resp.Body(), &dbErr)
		if uErr != nil {
			level.Error(global.Logger).Log("msg", "failed to unmarshal couchdb response", "err", uErr)
			return uErr
		}
		if dbErr.Error != "" {
			return fmt.Errorf("couchdb: %s: %s", dbErr.Error, dbErr.Reason)
		}
		return errors.New("couchdb: unexpected status " + resp.Status())
	}
	return nil
}
