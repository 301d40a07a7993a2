package mongodb

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	from := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)

	cond := DateRange(&from, &to)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cond["$gte"])
	end, ok := cond["$lte"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 999999999, time.UTC), end)

	open := DateRange(nil, &to)
	_, hasLower := open["$gte"]
	assert.False(t, hasLower)
}

func TestContainsFold(t *testing.T) {
	re := ContainsFold("pan (x2)")
	assert.Equal(t, "i", re.Options)

	compiled := regexp.MustCompile("(?i)" + re.Pattern)
	assert.True(t, compiled.MatchString("PAN (X2) integral"))
	assert.False(t, compiled.MatchString("pan x2"))
}

func TestSortHelpers(t *testing.T) {
	assert.Equal(t, 1, SortAscending("name")[0].Value)
	assert.Equal(t, -1, SortDescending("createdAt")[0].Value)
}
