package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPreferencesMissingProfileUsesDefault(t *testing.T) {
	selector := newMockSelector(t, repository.Profiles)
	httpmock.RegisterResponder("GET", couchUrl+"/profiles/"+aliceAddress,
		httpmock.NewStringResponder(404, `{"error":"not_found","reason":"missing"}`))

	ups := NewUserProfileService(selector, types.SendPreferences{OnlyInternal: true})
	prefs, err := ups.SendPreferences(context.Background(), aliceAddress)
	require.NoError(t, err)
	assert.True(t, prefs.OnlyInternal)
}

func TestSendPreferencesFromProfile(t *testing.T) {
	selector := newMockSelector(t, repository.Profiles)
	onlyInternal := false
	profile := types.UserProfile{BaseDocument: types.BaseDocument{ID: aliceAddress}, Address: aliceAddress, Username: "alice", OnlyInternal: &onlyInternal}
	responder, _ := httpmock.NewJsonResponder(200, profile)
	httpmock.RegisterResponder("GET", couchUrl+"/profiles/"+aliceAddress, responder)

	ups := NewUserProfileService(selector, types.SendPreferences{OnlyInternal: true})
	prefs, err := ups.SendPreferences(context.Background(), aliceAddress)
	require.NoError(t, err)
	assert.False(t, prefs.OnlyInternal)
	assert.Equal(t, "alice", ups.SenderName(context.Background(), aliceAddress))
}

func TestSendPreferencesStoreError(t *testing.T) {
	selector := newMockSelector(t, repository.Profiles)
	httpmock.RegisterResponder("GET", couchUrl+"/profiles/"+aliceAddress,
		httpmock.NewStringResponder(500, `{"error":"internal","reason":"down"}`))

	ups := NewUserProfileService(selector, types.SendPreferences{OnlyInternal: true})
	_, err := ups.SendPreferences(context.Background(), aliceAddress)
	assert.Error(t, err)
}

func TestLookupUsername(t *testing.T) {
	selector := newMockSelector(t, repository.Profiles)
	httpmock.RegisterResponder("POST", couchUrl+"/profiles/_find",
		func(req *http.Request) (*http.Response, error) {
			var query map[string]map[string]interface{}
			if err := json.NewDecoder(req.Body).Decode(&query); err != nil {
				return httpmock.NewStringResponse(400, `{"error":"bad_request"}`), nil
			}
			if query["selector"]["username"] == "alice" {
				return httpmock.NewJsonResponse(200, map[string]interface{}{
					"docs": []types.UserProfile{{BaseDocument: types.BaseDocument{ID: aliceAddress}, Address: aliceAddress, Username: "alice"}},
				})
			}
			return httpmock.NewStringResponse(200, `{"docs":[]}`), nil
		})

	ups := NewUserProfileService(selector, types.SendPreferences{OnlyInternal: true})
	address, err := ups.LookupUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, address)

	_, err = ups.LookupUsername(context.Background(), "Alice")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSenderNameAnonymous(t *testing.T) {
	selector := newMockSelector(t, repository.Profiles)
	profile := types.UserProfile{BaseDocument: types.BaseDocument{ID: aliceAddress}, Address: aliceAddress, Username: "alice", AnonymousMode: true}
	responder, _ := httpmock.NewJsonResponder(200, profile)
	httpmock.RegisterResponder("GET", couchUrl+"/profiles/"+aliceAddress, responder)

	ups := NewUserProfileService(selector, types.SendPreferences{})
	assert.Equal(t, "", ups.SenderName(context.Background(), aliceAddress))
}
