package orgunit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Org unit types, ordered from the widest to the narrowest level of the tree.
const (
	TypeMinistry = "ministry"
	TypeProvince = "province"
	TypeRegion   = "region"
	TypeSchool   = "school"
	TypeUnit     = "unit"
)

// Scope levels granted to users. SELF means the user's own unit subtree;
// the others widen visibility to the nearest ancestor of the mapped type.
const (
	ScopeSelf     = "SELF"
	ScopeSchool   = "SCHOOL"
	ScopeRegion   = "REGION"
	ScopeProvince = "PROVINCE"
	ScopeMinistry = "MINISTRY"
)

// scopeAnchorType maps a scope level to the org unit type that anchors it.
var scopeAnchorType = map[string]string{
	ScopeSchool:   TypeSchool,
	ScopeRegion:   TypeRegion,
	ScopeProvince: TypeProvince,
	ScopeMinistry: TypeMinistry,
}

// OrgUnit is a node in the organizational tree. Path is a materialized path
// of zero-padded ids ("/00000001/00000042") and is immutable after creation.
type OrgUnit struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID  *int64    `gorm:"column:parent_id" json:"parent_id"`
	Type      string    `gorm:"column:type;not null" json:"type"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Path      string    `gorm:"column:path;not null;index" json:"path"`
	Depth     int       `gorm:"column:depth;not null" json:"depth"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (OrgUnit) TableName() string {
	return "org_units"
}

// PadID renders an id as the fixed-width path segment used in materialized
// paths. Fixed width keeps string prefix comparisons consistent with tree
// ancestry.
func PadID(id int64) string {
	return fmt.Sprintf("%08d", id)
}

// ChildPath computes the path of a node given its parent's path. An empty
// parent path yields a root path.
func ChildPath(parentPath string, id int64) string {
	if parentPath == "" {
		return "/" + PadID(id)
	}
	return parentPath + "/" + PadID(id)
}

// SegmentIDs decodes a materialized path back into the ancestor id chain,
// ordered root first. The last element is the node itself.
func SegmentIDs(path string) []int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func ValidType(t string) bool {
	switch t {
	case TypeMinistry, TypeProvince, TypeRegion, TypeSchool, TypeUnit:
		return true
	}
	return false
}

func ValidScopeLevel(s string) bool {
	if s == ScopeSelf {
		return true
	}
	_, ok := scopeAnchorType[s]
	return ok
}
