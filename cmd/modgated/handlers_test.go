package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extmarket/modgate/models"
)

func queueContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestQueueDefaultExcludesApprovedAndDrafts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := parseQueueQuery(queueContext("/queue"))
	require.NoError(err)
	assert.ElementsMatch([]models.DecisionStatus{models.DecisionPending, models.DecisionRejected}, q.Statuses)
	assert.False(q.IncludeDrafts)
	assert.Equal(50, q.Limit)
}

func TestQueueStatusParamOverridesDefault(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := parseQueueQuery(queueContext("/queue?status=approved&type=listing&limit=5&offset=10"))
	require.NoError(err)
	assert.Equal([]models.DecisionStatus{models.DecisionApproved}, q.Statuses)
	assert.Equal("listing", q.SubjectType)
	assert.Equal(5, q.Limit)
	assert.Equal(10, q.Offset)
}

func TestQueueRejectsBadParams(t *testing.T) {
	assert := assert.New(t)

	_, err := parseQueueQuery(queueContext("/queue?status=bogus"))
	assert.Error(err)

	_, err = parseQueueQuery(queueContext("/queue?limit=many"))
	assert.Error(err)
}
