package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/kasmail/kasmail-server/types"
)

// implements Repository interface using CouchDB
type CouchDBRepository struct {
	client *resty.Client
	dbName string
}

func NewCouchDBRepository(url, DBName string, username string, password string, mock bool) (Repository, error) {
	cl := resty.New().SetBaseURL(url).SetTimeout(time.Second * 10)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "kasmail-server/1.0.0")
	cl.SetBasicAuth(username, password)

	if mock {
		httpmock.ActivateNonDefault(cl.GetClient())
	}

	existsRes, existsErr := cl.R().Head(DBName)
	if existsErr != nil {
		return nil, fmt.Errorf("failed to check if database exists: %s", existsErr.Error())
	}
	if existsRes.StatusCode() == 200 {
		return &CouchDBRepository{cl, DBName}, nil
	}

	var ok types.OK
	var dbErr types.CouchDBError
	// create DB since it doesn't exist
	_, err := cl.R().SetResult(&ok).SetError(&dbErr).Put(DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", DBName, err)
	}
	if dbErr.Error != "" {
		return nil, fmt.Errorf("failed to create database %s: %s", DBName, dbErr.Error)
	}
	if !ok.IsOK {
		return nil, fmt.Errorf("failed to create database %s", DBName)
	}
	return &CouchDBRepository{cl, DBName}, nil
}

// GetByID returns a document by its ID (as *resty.Response, see MapToObject)
func (c *CouchDBRepository) GetByID(ctx context.Context, id string) (interface{}, error) {
	response, err := c.client.R().SetContext(ctx).Get(fmt.Sprintf("%s/%s", c.dbName, id))
	if err != nil {
		return nil, err
	}
	if response.IsError() {
		return response, handleError(response)
	}
	return response, nil
}

// Find runs a mango query. The response body has the shape {"docs": [...]}
func (c *CouchDBRepository) Find(ctx context.Context, selector map[string]interface{}, limit int) (interface{}, error) {
	query := map[string]interface{}{
		"selector": selector,
	}
	if limit > 0 {
		query["limit"] = limit
	}
	response, err := c.client.R().SetContext(ctx).SetBody(query).Post(fmt.Sprintf("%s/_find", c.dbName))
	if err != nil {
		return nil, err
	}
	if response.IsError() {
		return response, handleError(response)
	}
	return response, nil
}

// Save creates a new doc or updates an existing one
func (c *CouchDBRepository) Save(ctx context.Context, docID string, data interface{}) error {
	var ok types.OK
	response, err := c.client.R().SetContext(ctx).SetBody(data).SetResult(&ok).Put(fmt.Sprintf("%s/%s", c.dbName, docID))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if response.IsError() {
		return handleError(response)
	}
	return nil
}

// Update updates an existing document (data must carry the current _rev)
func (c *CouchDBRepository) Update(ctx context.Context, id string, data interface{}) error {
	var ok types.OK
	response, err := c.client.R().SetContext(ctx).SetBody(data).SetResult(&ok).Put(fmt.Sprintf("%s/%s", c.dbName, id))
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if response.IsError() {
		return handleError(response)
	}
	if !ok.IsOK {
		return fmt.Errorf("failed to update document")
	}
	return nil
}

// Delete deletes a document by its ID
func (c *CouchDBRepository) Delete(ctx context.Context, id string) error {
	doc, err := c.GetByID(ctx, id)
	if err != nil {
		return err
	}
	var base types.BaseDocument
	if mErr := MapToObject(doc, &base); mErr != nil {
		return mErr
	}

	response, err := c.client.R().SetContext(ctx).SetQueryParam("rev", base.Rev).Delete(fmt.Sprintf("%s/%s", c.dbName, id))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return handleError(response)
}

// return name of the database
func (c *CouchDBRepository) GetDBName() string {
	return c.dbName
}

// returns a resty client
func (c *CouchDBRepository) GetClient() *resty.Client {
	return c.client
}
