package cache

import (
	"strconv"
	"strings"
)

// ViewKind names a cached projection shape. Each view is cached independently
// under its own namespace.
type ViewKind string

const (
	// ViewUser caches the plain user-by-id projection.
	ViewUser ViewKind = "users"
	// ViewUserWithCards caches the user-with-cards composite projection.
	ViewUserWithCards ViewKind = "usersWithCards"
	// ViewUserCards caches the card list of a user.
	ViewUserCards ViewKind = "userCards"
)

// UserViews is the eviction set for mutations of the user itself.
var UserViews = []ViewKind{ViewUser, ViewUserWithCards, ViewUserCards}

// CardOwnerViews is the eviction set for mutations of a user's cards: the
// plain user projection does not embed card data and stays valid.
var CardOwnerViews = []ViewKind{ViewUserCards, ViewUserWithCards}

// DefaultPrefix is the shared key namespace in the cache store.
const DefaultPrefix = "user-service"

// Key builds the persisted cache key "<prefix>:<viewKind>::<id>".
func Key(prefix string, view ViewKind, id int64) string {
	return prefix + ":" + string(view) + "::" + strconv.FormatInt(id, 10)
}

// ViewPattern returns the scan pattern matching every key of one view.
func ViewPattern(prefix string, view ViewKind) string {
	return prefix + ":" + string(view) + "::*"
}

// PrefixPattern returns the scan pattern matching every key of the service.
func PrefixPattern(prefix string) string {
	return prefix + ":*"
}

// ParseKey splits a persisted key back into view kind and id; ok is false for
// keys that do not follow the namespace format.
func ParseKey(prefix, key string) (ViewKind, int64, bool) {
	rest, found := strings.CutPrefix(key, prefix+":")
	if !found {
		return "", 0, false
	}
	view, idPart, found := strings.Cut(rest, "::")
	if !found {
		return "", 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return ViewKind(view), id, true
}

func (v ViewKind) String() string { return string(v) }
