package mongodb

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// SortAscending creates an ascending sort option
func SortAscending(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// ContainsFold builds a case-insensitive substring match for user input
func ContainsFold(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

// DateRange builds a range condition covering whole days: from the start
// of from to the end of to. Either bound may be nil.
func DateRange(from, to *time.Time) bson.M {
	cond := bson.M{}
	if from != nil {
		y, m, d := from.Date()
		cond["$gte"] = time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	}
	if to != nil {
		y, m, d := to.Date()
		cond["$lte"] = time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), to.Location())
	}
	return cond
}
