package postgres_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/audit/postgres"
)

var _ = Describe("Audit Repository", func() {
	var (
		db   *gorm.DB
		repo *postgres.Repository
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&audit.Entry{})).To(Succeed())
		repo = postgres.NewRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("appends entries and reads them back per entity", func() {
		actorID := int64(7)
		ticketID := int64(42)
		entry := &audit.Entry{
			ActorID:    &actorID,
			Action:     audit.ActionPermissionDenied,
			EntityType: audit.EntityTicketConfidential,
			EntityID:   &ticketID,
			DiffJSON:   `{"reason":"confidential"}`,
			IP:         "10.0.0.1",
			UserAgent:  "test-agent",
			CreatedAt:  time.Now().UTC(),
		}
		Expect(repo.Append(entry)).To(Succeed())
		Expect(entry.ID).NotTo(BeZero())

		entries, err := repo.ListForEntity(audit.EntityTicketConfidential, ticketID, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Action).To(Equal(audit.ActionPermissionDenied))
		Expect(entries[0].IP).To(Equal("10.0.0.1"))
	})

	It("keeps appends visible when a surrounding business transaction rolls back", func() {
		ticketID := int64(9)

		// The repository is bound to the root handle, never to the caller's
		// transaction, so the denial trail survives the rollback.
		tx := db.Begin()
		Expect(repo.Append(&audit.Entry{
			Action:     audit.ActionPermissionDenied,
			EntityType: audit.EntityOrgUnitAccess,
			EntityID:   &ticketID,
			CreatedAt:  time.Now().UTC(),
		})).To(Succeed())
		tx.Rollback()

		entries, err := repo.ListForEntity(audit.EntityOrgUnitAccess, ticketID, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("lists recent entries newest first", func() {
		for i := 0; i < 3; i++ {
			id := int64(i + 1)
			Expect(repo.Append(&audit.Entry{
				Action:     audit.ActionTicketCreated,
				EntityType: audit.EntityTicket,
				EntityID:   &id,
				CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
			})).To(Succeed())
		}

		entries, err := repo.ListRecent(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(*entries[0].EntityID).To(Equal(int64(3)))
	})
})
