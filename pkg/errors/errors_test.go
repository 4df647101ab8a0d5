package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsCodeAndMessage(t *testing.T) {
	err := New(ErrCodeRuleStoreQuery, "section lookup failed")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeRuleStoreQuery, err.Code)
	assert.Equal(t, "section lookup failed", err.Message)
	assert.NotEmpty(t, err.Stack)
}

func TestError_FormatWithAndWithoutDetail(t *testing.T) {
	err := New(ErrCodeNoCandidates, "no candidates")
	assert.Equal(t, "[ENG_001] no candidates", err.Error())

	withDetail := err.WithDetail("product=sku-1")
	assert.Equal(t, "[ENG_001] no candidates: product=sku-1", withDetail.Error())
	// Original is untouched.
	assert.Empty(t, err.Detail)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query failed"))
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeRuleStoreUnavailable, "rule store down")
	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, ErrCodeRuleStoreUnavailable, err.Code)
}

func TestWrap_UnknownCodePreservesOriginal(t *testing.T) {
	inner := New(ErrCodeChapterNotesNotFound, "no notes for chapter 95")
	outer := Wrap(inner, ErrCodeUnknown, "enrich stage")
	assert.Equal(t, ErrCodeChapterNotesNotFound, outer.Code)
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := New(ErrCodeAIResponseInvalid, "garbled json")
	wrapped := fmt.Errorf("consult stage: %w", inner)
	assert.True(t, IsCode(wrapped, ErrCodeAIResponseInvalid))
	assert.False(t, IsCode(wrapped, ErrCodeAIRequestFailed))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeSectionNotFound, "section 22")))
	assert.True(t, IsNotFound(New(ErrCodeHeadingNotFound, "heading 8471")))
	assert.False(t, IsNotFound(New(ErrCodeAIRequestFailed, "timeout")))
	assert.False(t, IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeAuditAppend, GetCode(New(ErrCodeAuditAppend, "kafka write")))
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForCode(ErrCodeNoCandidates))
	assert.Equal(t, http.StatusNotFound, HTTPStatusForCode(ErrCodeChapterNotesNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("BOGUS_999")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "RULE", ModuleForCode(ErrCodeRuleStoreQuery))
	assert.Equal(t, "ENG", ModuleForCode(ErrCodeStageFailed))
	assert.Equal(t, "AI", ModuleForCode(ErrCodeChallengeFailed))
	assert.Equal(t, "AUD", ModuleForCode(ErrCodeAuditAppend))
}

func TestIsClientServerError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeCandidateInvalid))
	assert.False(t, IsServerError(ErrCodeCandidateInvalid))
	assert.True(t, IsServerError(ErrCodeAuditAppend))
}
