package cmd

import (
	"fmt"
	"log"

	"github.com/satriajat/helpdesk-management/internal/orgunit"
	orgunitdb "github.com/satriajat/helpdesk-management/internal/orgunit/postgres"
	"github.com/satriajat/helpdesk-management/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.InitWithOptions(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			clearSeedData(db)
		}

		units := seedOrgTree(db, gormDB)
		roleIDs := seedRoles(db)
		teamIDs := seedTeams(db, units)
		seedUsers(db, cfg.Security.BCryptCost, units, roleIDs, teamIDs)

		fmt.Println("Seeding completed successfully")
	},
}

func clearSeedData(db *sqlx.DB) {
	// children first so foreign keys never complain
	tables := []string{
		"audit_logs", "attachments", "ticket_messages", "tickets",
		"team_members", "teams", "users", "roles", "org_units",
	}
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			log.Fatalf("failed to clear table %s: %v", table, err)
		}
	}
	fmt.Println("Cleared existing data")
}

// seedOrgTree builds ministry -> province -> region -> school -> unit and
// returns the ids keyed by name. Existing units are reused.
func seedOrgTree(db *sqlx.DB, gormDB *gorm.DB) map[string]int64 {
	unitService := orgunit.NewService(orgunitdb.NewRepository(gormDB), logger.LoggerWrapper())

	tree := []struct {
		Name   string
		Type   string
		Parent string
	}{
		{"Ministry of Education", orgunit.TypeMinistry, ""},
		{"West Province", orgunit.TypeProvince, "Ministry of Education"},
		{"East Province", orgunit.TypeProvince, "Ministry of Education"},
		{"Northwest Region", orgunit.TypeRegion, "West Province"},
		{"Southwest Region", orgunit.TypeRegion, "West Province"},
		{"Hillside School", orgunit.TypeSchool, "Northwest Region"},
		{"Lakeside School", orgunit.TypeSchool, "Southwest Region"},
		{"Hillside IT Office", orgunit.TypeUnit, "Hillside School"},
		{"Lakeside IT Office", orgunit.TypeUnit, "Lakeside School"},
	}

	ids := make(map[string]int64, len(tree))
	for _, node := range tree {
		var existing int64
		if err := db.QueryRow("SELECT id FROM org_units WHERE name = $1", node.Name).Scan(&existing); err == nil {
			ids[node.Name] = existing
			continue
		}

		var parentID *int64
		if node.Parent != "" {
			pid, ok := ids[node.Parent]
			if !ok {
				log.Fatalf("seed order error: parent %s not created before %s", node.Parent, node.Name)
			}
			parentID = &pid
		}

		unit, err := unitService.Create(node.Name, node.Type, parentID)
		if err != nil {
			log.Fatalf("failed to seed org unit %s: %v", node.Name, err)
		}
		ids[node.Name] = unit.ID
		fmt.Printf("Seeded org unit: %s (%s)\n", node.Name, unit.Path)
	}
	return ids
}

func seedRoles(db *sqlx.DB) map[string]int64 {
	roles := []struct {
		Name        string
		Permissions string
	}{
		{"admin", "admin,agent,CONFIDENTIAL_VIEW,EXPORT_CONFIDENTIAL"},
		{"supervisor", "agent,CONFIDENTIAL_VIEW"},
		{"agent", "agent"},
		{"requester", ""},
	}

	ids := make(map[string]int64, len(roles))
	for _, role := range roles {
		var id int64
		if err := db.QueryRow("SELECT id FROM roles WHERE name = $1", role.Name).Scan(&id); err == nil {
			ids[role.Name] = id
			continue
		}

		if err := db.QueryRow(
			"INSERT INTO roles (name, permissions, created_at) VALUES ($1, $2, now()) RETURNING id",
			role.Name, role.Permissions,
		).Scan(&id); err != nil {
			log.Fatalf("failed to seed role %s: %v", role.Name, err)
		}
		ids[role.Name] = id
		fmt.Println("Seeded role:", role.Name)
	}
	return ids
}

func seedTeams(db *sqlx.DB, units map[string]int64) map[string]int64 {
	teams := []struct {
		Name    string
		Desc    string
		OrgUnit string
	}{
		{"Hillside Support", "First-line support for Hillside School", "Hillside School"},
		{"Lakeside Support", "First-line support for Lakeside School", "Lakeside School"},
		{"Regional Escalations", "Escalation desk for the western regions", "West Province"},
	}

	ids := make(map[string]int64, len(teams))
	for _, team := range teams {
		var id int64
		if err := db.QueryRow("SELECT id FROM teams WHERE name = $1", team.Name).Scan(&id); err == nil {
			ids[team.Name] = id
			continue
		}

		orgUnitID := units[team.OrgUnit]
		if err := db.QueryRow(
			"INSERT INTO teams (name, description, org_unit_id, created_at) VALUES ($1, $2, $3, now()) RETURNING id",
			team.Name, team.Desc, orgUnitID,
		).Scan(&id); err != nil {
			log.Fatalf("failed to seed team %s: %v", team.Name, err)
		}
		ids[team.Name] = id
		fmt.Println("Seeded team:", team.Name)
	}
	return ids
}

func seedUsers(db *sqlx.DB, bcryptCost int, units, roleIDs, teamIDs map[string]int64) {
	password := "password"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	users := []struct {
		Email      string
		Name       string
		Role       string
		OrgUnit    string
		ScopeLevel string
		Teams      []string
	}{
		{"admin@helpdesk.local", "System Admin", "admin", "Ministry of Education", orgunit.ScopeMinistry, nil},
		{"supervisor@helpdesk.local", "Regional Supervisor", "supervisor", "Northwest Region", orgunit.ScopeRegion, []string{"Regional Escalations"}},
		{"agent.hillside@helpdesk.local", "Hillside Agent", "agent", "Hillside IT Office", orgunit.ScopeSchool, []string{"Hillside Support"}},
		{"agent.lakeside@helpdesk.local", "Lakeside Agent", "agent", "Lakeside IT Office", orgunit.ScopeSchool, []string{"Lakeside Support"}},
		{"teacher@helpdesk.local", "Hillside Teacher", "requester", "Hillside IT Office", orgunit.ScopeSelf, nil},
	}

	for _, user := range users {
		var userID int64
		if err := db.QueryRow("SELECT id FROM users WHERE email = $1", user.Email).Scan(&userID); err != nil {
			orgUnitID := units[user.OrgUnit]
			if err := db.QueryRow(
				`INSERT INTO users (email, name, password_hash, role_id, org_unit_id, scope_level, is_active, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, true, now(), now()) RETURNING id`,
				user.Email, user.Name, string(hash), roleIDs[user.Role], orgUnitID, user.ScopeLevel,
			).Scan(&userID); err != nil {
				log.Fatalf("failed to seed user %s: %v", user.Email, err)
			}
			fmt.Println("Seeded user:", user.Email)
		}

		for _, teamName := range user.Teams {
			teamID, ok := teamIDs[teamName]
			if !ok {
				log.Fatalf("seed order error: team %s not created before user %s", teamName, user.Email)
			}

			var exists int
			if err := db.QueryRow(
				"SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2", teamID, userID,
			).Scan(&exists); err == nil {
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO team_members (team_id, user_id, role_in_team, created_at) VALUES ($1, $2, 'member', now())",
				teamID, userID,
			); err != nil {
				log.Fatalf("failed to add %s to team %s: %v", user.Email, teamName, err)
			}
		}
	}
}
