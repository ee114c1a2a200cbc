package models

import "errors"

// ErrInvalidGiveawayID is returned when a record carries no usable upstream id.
var ErrInvalidGiveawayID = errors.New("giveaway has no valid id")

// CVStatus is the contributor value a giveaway earns its creator.
type CVStatus string

const (
	FullCV    CVStatus = "FULL_CV"
	ReducedCV CVStatus = "REDUCED_CV"
	NoCV      CVStatus = "NO_CV"
)

// Creator is the denormalized user who created a giveaway.
type Creator struct {
	ID       int    `json:"id" firestore:"id"`
	SteamID  string `json:"steam_id" firestore:"steamID"`
	Username string `json:"username" firestore:"username"`
}

// Giveaway is one listing as returned by the group search endpoint.
// ID is assigned upstream and is the merge key of the local collection.
type Giveaway struct {
	ID               int      `json:"id" firestore:"id" validate:"required,gt=0"`
	Name             string   `json:"name" firestore:"name"`
	Points           int      `json:"points" firestore:"points" validate:"gte=0"`
	Copies           int      `json:"copies" firestore:"copies" validate:"gte=0"`
	AppID            *int     `json:"app_id" firestore:"appID"`
	PackageID        *int     `json:"package_id" firestore:"packageID"`
	Link             string   `json:"link" firestore:"link"`
	CreatedTimestamp int64    `json:"created_timestamp" firestore:"createdTimestamp" validate:"gte=0"`
	StartTimestamp   int64    `json:"start_timestamp" firestore:"startTimestamp" validate:"gte=0"`
	EndTimestamp     int64    `json:"end_timestamp" firestore:"endTimestamp" validate:"gte=0"`
	RegionRestricted bool     `json:"region_restricted" firestore:"regionRestricted"`
	InviteOnly       bool     `json:"invite_only" firestore:"inviteOnly"`
	Whitelist        bool     `json:"whitelist" firestore:"whitelist"`
	Group            bool     `json:"group" firestore:"group"`
	ContributorLevel int      `json:"contributor_level" firestore:"contributorLevel" validate:"gte=0"`
	CommentCount     int      `json:"comment_count" firestore:"commentCount" validate:"gte=0"`
	EntryCount       int      `json:"entry_count" firestore:"entryCount" validate:"gte=0"`
	Creator          Creator  `json:"creator" firestore:"creator"`
	CVStatus         CVStatus `json:"cv_status,omitempty" firestore:"cvStatus,omitempty" validate:"omitempty,oneof=FULL_CV REDUCED_CV NO_CV"`

	// Set by the deletion sweep, never by the search endpoint.
	Deleted       bool   `json:"deleted,omitempty" firestore:"deleted,omitempty"`
	DeletedReason string `json:"deleted_reason,omitempty" firestore:"deletedReason,omitempty"`
}

// Ended reports whether the giveaway was over at the given epoch second.
func (g Giveaway) Ended(now int64) bool {
	return g.EndTimestamp <= now
}

// Group identifies the steam group a search response belongs to.
type Group struct {
	ID   int    `json:"id"`
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// SearchResponse is one page of the group search endpoint.
type SearchResponse struct {
	Success bool       `json:"success"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Group   Group      `json:"group"`
	Results []Giveaway `json:"results"`
}

// BundleGame is a game whose contributor value was reduced or removed after bundling.
type BundleGame struct {
	Name                  string `json:"name"`
	AppID                 int    `json:"app_id"`
	PackageID             *int   `json:"package_id"`
	ReducedValueTimestamp *int64 `json:"reduced_value_timestamp"`
	NoValueTimestamp      *int64 `json:"no_value_timestamp"`
}

// BundleGamesResponse is one page of the bundle-games search endpoint.
type BundleGamesResponse struct {
	Success bool         `json:"success"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Results []BundleGame `json:"results"`
}
