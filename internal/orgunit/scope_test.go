package orgunit_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satriajat/helpdesk-management/internal/orgunit"
)

type memoryRepo struct {
	units  map[int64]*orgunit.OrgUnit
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{units: make(map[int64]*orgunit.OrgUnit), nextID: 1}
}

func (m *memoryRepo) CreateStub(unit *orgunit.OrgUnit) error {
	unit.ID = m.nextID
	m.nextID++
	cp := *unit
	m.units[unit.ID] = &cp
	return nil
}

func (m *memoryRepo) SavePath(id int64, path string, depth int) error {
	m.units[id].Path = path
	m.units[id].Depth = depth
	return nil
}

func (m *memoryRepo) GetByID(id int64) (*orgunit.OrgUnit, error) {
	unit, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	cp := *unit
	return &cp, nil
}

func (m *memoryRepo) GetByIDs(ids []int64) ([]*orgunit.OrgUnit, error) {
	var out []*orgunit.OrgUnit
	for _, id := range ids {
		if unit, ok := m.units[id]; ok {
			cp := *unit
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryRepo) DescendantsOf(pathPrefix string) ([]*orgunit.OrgUnit, error) {
	var out []*orgunit.OrgUnit
	for _, unit := range m.units {
		if unit.Path == pathPrefix || (len(unit.Path) > len(pathPrefix) && unit.Path[:len(pathPrefix)+1] == pathPrefix+"/") {
			cp := *unit
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ = Describe("OrgUnit tree", func() {
	var (
		repo    *memoryRepo
		service *orgunit.Service
	)

	BeforeEach(func() {
		repo = newMemoryRepo()
		service = orgunit.NewService(repo, slog.Default())
	})

	buildTree := func() (province, region, school, unit *orgunit.OrgUnit) {
		var err error
		province, err = service.Create("Province A", orgunit.TypeProvince, nil)
		Expect(err).NotTo(HaveOccurred())
		region, err = service.Create("Region A1", orgunit.TypeRegion, &province.ID)
		Expect(err).NotTo(HaveOccurred())
		school, err = service.Create("School A1-S", orgunit.TypeSchool, &region.ID)
		Expect(err).NotTo(HaveOccurred())
		unit, err = service.Create("IT Desk", orgunit.TypeUnit, &school.ID)
		Expect(err).NotTo(HaveOccurred())
		return
	}

	Describe("Create", func() {
		It("assigns a root path of its own padded id", func() {
			province, err := service.Create("Province A", orgunit.TypeProvince, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(province.Path).To(Equal("/00000001"))
			Expect(province.Depth).To(Equal(1))
		})

		It("extends the parent path segment by segment", func() {
			province, region, school, unit := buildTree()
			Expect(region.Path).To(Equal(province.Path + "/00000002"))
			Expect(school.Path).To(Equal(region.Path + "/00000003"))
			Expect(unit.Path).To(Equal(school.Path + "/00000004"))
			Expect(unit.Depth).To(Equal(4))
		})

		It("rejects an unknown parent", func() {
			missing := int64(999)
			_, err := service.Create("Orphan", orgunit.TypeSchool, &missing)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an invalid unit type", func() {
			_, err := service.Create("Weird", "galaxy", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Descendants", func() {
		It("returns the subtree including the root, and not siblings", func() {
			province, region, _, _ := buildTree()
			other, err := service.Create("Region A2", orgunit.TypeRegion, &province.ID)
			Expect(err).NotTo(HaveOccurred())

			subtree, err := service.Descendants(region.ID)
			Expect(err).NotTo(HaveOccurred())

			ids := make([]int64, 0, len(subtree))
			for _, u := range subtree {
				ids = append(ids, u.ID)
			}
			Expect(ids).To(ContainElements(region.ID))
			Expect(ids).NotTo(ContainElement(other.ID))
			Expect(len(ids)).To(Equal(3))
		})
	})

	Describe("Resolver", func() {
		var resolver *orgunit.Resolver

		BeforeEach(func() {
			resolver = orgunit.NewResolver(repo)
		})

		It("SELF scope resolves to the viewer's own path", func() {
			_, _, school, _ := buildTree()
			path, err := resolver.ScopeRootPath(school.ID, orgunit.ScopeSelf)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(school.Path))
		})

		It("REGION scope resolves to the nearest region ancestor", func() {
			_, region, _, unit := buildTree()
			path, err := resolver.ScopeRootPath(unit.ID, orgunit.ScopeRegion)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(region.Path))
		})

		It("uses the viewer's own unit when it already has the anchor type", func() {
			_, region, _, _ := buildTree()
			path, err := resolver.ScopeRootPath(region.ID, orgunit.ScopeRegion)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(region.Path))
		})

		It("falls back to the viewer's own path when no ancestor matches", func() {
			_, _, _, unit := buildTree()
			path, err := resolver.ScopeRootPath(unit.ID, orgunit.ScopeMinistry)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(unit.Path))
		})

		It("grants region-level viewers their whole region but not siblings", func() {
			province, _, school, _ := buildTree()
			otherRegion, err := service.Create("Region A2", orgunit.TypeRegion, &province.ID)
			Expect(err).NotTo(HaveOccurred())
			otherSchool, err := service.Create("School A2-S", orgunit.TypeSchool, &otherRegion.ID)
			Expect(err).NotTo(HaveOccurred())

			ok, err := resolver.IsInScope(&school.ID, orgunit.ScopeRegion, &school.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = resolver.IsInScope(&school.ID, orgunit.ScopeRegion, &otherSchool.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = resolver.IsInScope(&school.ID, orgunit.ScopeProvince, &otherSchool.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("SELF scope covers the viewer's subtree only", func() {
			_, region, school, unit := buildTree()
			ok, err := resolver.IsInScope(&school.ID, orgunit.ScopeSelf, &unit.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = resolver.IsInScope(&school.ID, orgunit.ScopeSelf, &region.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("denies when either side is missing", func() {
			_, _, school, _ := buildTree()
			missing := int64(12345)

			ok, err := resolver.IsInScope(nil, orgunit.ScopeSelf, &school.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = resolver.IsInScope(&school.ID, orgunit.ScopeSelf, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = resolver.IsInScope(&school.ID, orgunit.ScopeSelf, &missing)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
