package orgunit

import (
	"strings"
)

// Resolver answers "what subtree can this viewer see" questions from the
// materialized paths, without loading whole subtrees.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ScopeRootPath resolves the path prefix a viewer's scope level grants.
// SELF is the viewer's own subtree. Wider levels anchor on the nearest
// ancestor of the mapped type: the viewer's own unit is checked first, then
// the ancestor chain is walked from the viewer upward. When no ancestor of
// the wanted type exists the viewer's own path is returned, so a
// misconfigured scope narrows visibility instead of widening it.
func (r *Resolver) ScopeRootPath(viewerUnitID int64, scopeLevel string) (string, error) {
	viewer, err := r.repo.GetByID(viewerUnitID)
	if err != nil {
		return "", err
	}
	if viewer == nil {
		return "", nil
	}

	if scopeLevel == ScopeSelf || scopeLevel == "" {
		return viewer.Path, nil
	}

	anchorType, ok := scopeAnchorType[scopeLevel]
	if !ok {
		return viewer.Path, nil
	}
	if viewer.Type == anchorType {
		return viewer.Path, nil
	}

	ancestorIDs := SegmentIDs(viewer.Path)
	if len(ancestorIDs) > 0 {
		ancestorIDs = ancestorIDs[:len(ancestorIDs)-1]
	}
	if len(ancestorIDs) == 0 {
		return viewer.Path, nil
	}

	ancestors, err := r.repo.GetByIDs(ancestorIDs)
	if err != nil {
		return "", err
	}
	byID := make(map[int64]*OrgUnit, len(ancestors))
	for _, a := range ancestors {
		byID[a.ID] = a
	}

	// Nearest ancestor wins, so walk from the viewer upward.
	for i := len(ancestorIDs) - 1; i >= 0; i-- {
		if a, ok := byID[ancestorIDs[i]]; ok && a.Type == anchorType {
			return a.Path, nil
		}
	}
	return viewer.Path, nil
}

// IsInScope reports whether the target unit sits inside the subtree the
// viewer's scope level grants. Missing units resolve to false, never to an
// error the caller might interpret as "allowed".
func (r *Resolver) IsInScope(viewerUnitID *int64, scopeLevel string, targetUnitID *int64) (bool, error) {
	if viewerUnitID == nil || targetUnitID == nil {
		return false, nil
	}

	scopeRoot, err := r.ScopeRootPath(*viewerUnitID, scopeLevel)
	if err != nil {
		return false, err
	}
	if scopeRoot == "" {
		return false, nil
	}

	target, err := r.repo.GetByID(*targetUnitID)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}
	return strings.HasPrefix(target.Path, scopeRoot), nil
}
