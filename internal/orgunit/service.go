package orgunit

import (
	"log/slog"

	"github.com/satriajat/helpdesk-management/internal"
)

type Repository interface {
	CreateStub(unit *OrgUnit) error
	SavePath(id int64, path string, depth int) error
	GetByID(id int64) (*OrgUnit, error)
	GetByIDs(ids []int64) ([]*OrgUnit, error)
	DescendantsOf(pathPrefix string) ([]*OrgUnit, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create inserts a unit in two phases: a stub insert to obtain the id, then
// the path/depth computed from the parent. The path never changes afterwards,
// so scope checks can rely on plain prefix comparison.
func (s *Service) Create(name, unitType string, parentID *int64) (*OrgUnit, error) {
	if name == "" {
		return nil, internal.NewValidationError("org unit name is required", internal.ErrCodeValidationFailed)
	}
	if !ValidType(unitType) {
		return nil, internal.NewValidationError("invalid org unit type: "+unitType, internal.ErrCodeValidationFailed)
	}

	var parent *OrgUnit
	if parentID != nil {
		var err error
		parent, err = s.repo.GetByID(*parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, internal.NewNotFoundError("parent org unit not found", internal.ErrCodeOrgUnitNotFound)
		}
	}

	unit := &OrgUnit{
		ParentID: parentID,
		Type:     unitType,
		Name:     name,
	}
	if err := s.repo.CreateStub(unit); err != nil {
		s.logger.Error("failed to create org unit", "name", name, "error", err)
		return nil, internal.NewInternalError("failed to create org unit", err)
	}

	parentPath := ""
	depth := 1
	if parent != nil {
		parentPath = parent.Path
		depth = parent.Depth + 1
	}
	unit.Path = ChildPath(parentPath, unit.ID)
	unit.Depth = depth

	if err := s.repo.SavePath(unit.ID, unit.Path, unit.Depth); err != nil {
		s.logger.Error("failed to persist org unit path", "org_unit_id", unit.ID, "error", err)
		return nil, internal.NewInternalError("failed to persist org unit path", err)
	}
	return unit, nil
}

func (s *Service) Get(id int64) (*OrgUnit, error) {
	unit, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, internal.ErrOrgUnitNotFound
	}
	return unit, nil
}

// Descendants returns the subtree rooted at the given unit, the unit itself
// included, ordered by path.
func (s *Service) Descendants(id int64) ([]*OrgUnit, error) {
	unit, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.repo.DescendantsOf(unit.Path)
}
