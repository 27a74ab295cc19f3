package models

// TagType labels a group of cached responses.
type TagType string

const (
	TagTransactions TagType = "Transactions"
	TagCategory     TagType = "Category"
	TagBudget       TagType = "Budget"
	TagPlan         TagType = "Plan"
	TagGoal         TagType = "Goal"
	TagSettings     TagType = "Settings"
)

// DefaultTagTypes is the closed set of tag types registered with every endpoint registry.
var DefaultTagTypes = []TagType{TagTransactions, TagCategory, TagBudget, TagPlan, TagGoal, TagSettings}

// ListID is the collection marker: "all records of this type".
const ListID = "LIST"

// Tag addresses cached data either at collection level (ID == ListID) or for one entity.
// An empty ID addresses every tag of the type.
type Tag struct {
	Type TagType `json:"type"`
	ID   string  `json:"id,omitempty"`
}

// ListTag returns the collection marker for t.
func ListTag(t TagType) Tag { return Tag{Type: t, ID: ListID} }

// IDTag returns the per-entity marker for t.
func IDTag(t TagType, id string) Tag { return Tag{Type: t, ID: id} }

// Matches reports whether an invalidation of tag t reaches data provided under other.
func (t Tag) Matches(other Tag) bool {
	if t.Type != other.Type {
		return false
	}
	return t.ID == "" || t.ID == other.ID
}

func (t Tag) String() string {
	if t.ID == "" {
		return string(t.Type)
	}
	return string(t.Type) + ":" + t.ID
}

// Invalidation is emitted after a write completes, naming the tags whose cached data is now stale.
type Invalidation struct {
	Endpoint string `json:"endpoint"`
	Tags     []Tag  `json:"tags"`
}
