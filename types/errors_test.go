package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchErrorKind(t *testing.T) {
	assert.Equal(t, "", DispatchErrorKind(nil))
	assert.Equal(t, ErrorKindIneligible, DispatchErrorKind(fmt.Errorf("%w: balance 10", ErrIneligible)))
	assert.Equal(t, ErrorKindPolicyViolation, DispatchErrorKind(fmt.Errorf("%w: x", ErrPolicyViolation)))
	assert.Equal(t, ErrorKindRecipientNotFound, DispatchErrorKind(ErrRecipientNotFound))
	assert.Equal(t, ErrorKindPaymentFailed, DispatchErrorKind(ErrPaymentFailed))
	assert.Equal(t, ErrorKindUploadFailed, DispatchErrorKind(ErrUploadFailed))
	assert.Equal(t, ErrorKindRelayFailed, DispatchErrorKind(ErrRelayFailed))
	assert.Equal(t, ErrorKindCommitFailed, DispatchErrorKind(ErrCommitFailed))
	assert.Equal(t, ErrorKindInternal, DispatchErrorKind(errors.New("boom")))
}

func TestUserMessageCarriesRawCauseForStrictSteps(t *testing.T) {
	err := fmt.Errorf("%w: relay answered 422", ErrRelayFailed)
	assert.Contains(t, UserMessage(err), "relay answered 422")
	assert.NotContains(t, UserMessage(ErrIneligible), ErrIneligible.Error())
}

func TestDispatchResult(t *testing.T) {
	failed := NewDispatchResult("abc", nil, ErrPaymentFailed)
	assert.False(t, failed.Success)
	assert.Equal(t, ErrorKindPaymentFailed, failed.ErrorKind)

	ok := NewDispatchResult("abc", &MessageRecord{ID: "abc"}, nil)
	assert.True(t, ok.Success)
	assert.Equal(t, "abc", ok.Message.ID)
}
