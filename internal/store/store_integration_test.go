// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/department"
	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/internal/store"
	"github.com/holomush/portal/internal/tier"
	"github.com/holomush/portal/pkg/errutil"
)

var (
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	db        *store.Store
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal_test"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Open(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())
	db = store.New(pool)
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

var _ = BeforeEach(func() {
	_, err := pool.Exec(context.Background(),
		`TRUNCATE users, permission_mappings, role_definitions, ranks, roster_members CASCADE`)
	Expect(err).NotTo(HaveOccurred())
})

func createUser(ctx context.Context, name string, roles ...string) *account.User {
	u := &account.User{DisplayName: name, ExternalID: ulid.Make().String(), ExternalRoles: roles}
	Expect(db.Users.Create(ctx, u)).To(Succeed())
	return u
}

var _ = Describe("UserRepository", func() {
	It("round-trips users with manual role assignments", func() {
		ctx := context.Background()
		u := createUser(ctx, "Ada", "r-officer")

		def := &authority.RoleDefinition{Name: "Event Team", Permissions: []string{"events.manage"}}
		Expect(db.Authority.PutRoleDefinition(ctx, def)).To(Succeed())
		Expect(db.Users.AssignRole(ctx, u.ID, def.ID)).To(Succeed())
		Expect(db.Users.AssignRole(ctx, u.ID, def.ID)).To(Succeed(), "assignment is idempotent")

		got, err := db.Users.Get(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ExternalRoles).To(Equal([]string{"r-officer"}))
		Expect(got.ManualRoleIDs).To(Equal([]ulid.ULID{def.ID}))
		Expect(got.StaffTier).To(Equal(tier.None))
	})

	It("applies partial updates", func() {
		ctx := context.Background()
		u := createUser(ctx, "Bob")
		perms := []string{"roster.view"}
		staff := tier.Moderator
		isStaff := true
		Expect(db.Users.Update(ctx, u.ID, account.Patch{
			Permissions: &perms, StaffTier: &staff, IsStaff: &isStaff,
		})).To(Succeed())

		got, err := db.Users.Get(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Permissions).To(Equal(perms))
		Expect(got.StaffTier).To(Equal(tier.Moderator))
		Expect(got.IsStaff).To(BeTrue())
		Expect(got.DisplayName).To(Equal("Bob"))
	})

	It("reports missing users as not found", func() {
		_, err := db.Users.Get(context.Background(), ulid.Make())
		Expect(errutil.IsNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("AuthorityRepository", func() {
	It("replaces legacy mappings on conflict", func() {
		ctx := context.Background()
		Expect(db.Authority.PutLegacyMapping(ctx, authority.PermissionMapping{
			ExternalRoleID: "r-admin", PermissionList: "users.manage", StaffTier: tier.Administrator,
		})).To(Succeed())
		Expect(db.Authority.PutLegacyMapping(ctx, authority.PermissionMapping{
			ExternalRoleID: "r-admin", PermissionList: "users.manage,roster.edit", StaffTier: tier.Manager,
		})).To(Succeed())

		rows, err := db.Authority.LegacyMappings(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(ConsistOf(authority.PermissionMapping{
			ExternalRoleID: "r-admin", PermissionList: "users.manage,roster.edit", StaffTier: tier.Manager,
		}))
	})
})

var _ = Describe("MemberRepository", func() {
	var (
		ctx  context.Context
		user *account.User
		rank *roster.Rank
	)

	BeforeEach(func() {
		ctx = context.Background()
		user = createUser(ctx, "Ada")
		rank = &roster.Rank{DepartmentCode: "acpd", Name: "Officer", PriorityIndex: 3, ExternalRoleID: "r-officer"}
		Expect(db.Ranks.Put(ctx, rank)).To(Succeed())
	})

	It("adopts the existing row when the user already has one in the department", func() {
		first, err := db.Members.Create(ctx, &roster.Member{
			UserID: user.ID, DepartmentCode: "acpd", RankID: rank.ID, Identifier: "ACP01A",
		})
		Expect(err).NotTo(HaveOccurred())

		second, err := db.Members.Create(ctx, &roster.Member{
			UserID: user.ID, DepartmentCode: "acpd", RankID: rank.ID, Identifier: "ACP01B",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).To(Equal(first.ID))
		Expect(second.Identifier).To(Equal("ACP01A"))
	})

	It("rejects members referencing a missing rank", func() {
		_, err := db.Members.Create(ctx, &roster.Member{
			UserID: user.ID, DepartmentCode: "acpd", RankID: ulid.Make(),
		})
		Expect(errutil.IsNotFound(err)).To(BeTrue())
	})

	It("clears fields patched to empty", func() {
		m, err := db.Members.Create(ctx, &roster.Member{
			UserID: user.ID, DepartmentCode: "acpd", RankID: rank.ID, Identifier: "ACP01A", Callsign: "3-100",
		})
		Expect(err).NotTo(HaveOccurred())

		empty := ""
		Expect(db.Members.Update(ctx, m.ID, roster.MemberPatch{Identifier: &empty, Callsign: &empty})).To(Succeed())

		got, err := db.Members.GetByUser(ctx, user.ID, "acpd")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Identifier).To(BeEmpty())
		Expect(got.Callsign).To(BeEmpty())

		Expect(db.Members.Delete(ctx, m.ID)).To(Succeed())
		_, err = db.Members.GetByUser(ctx, user.ID, "acpd")
		Expect(errutil.IsNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("AdvisoryLocker", func() {
	It("excludes a second holder until the first unlocks", func() {
		ctx := context.Background()
		locker := store.NewAdvisoryLocker(pool)

		unlock, err := locker.Lock(ctx, "acpd")
		Expect(err).NotTo(HaveOccurred())

		waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "acpd")
		Expect(err).To(HaveOccurred())

		other, err := locker.Lock(ctx, "ems")
		Expect(err).NotTo(HaveOccurred(), "departments lock independently")
		other()

		unlock()
		again, err := locker.Lock(ctx, "acpd")
		Expect(err).NotTo(HaveOccurred())
		again()
	})
})

var _ = Describe("Roster synthesis on PostgreSQL", func() {
	It("allocates unique identifiers under concurrent synthesis", func() {
		ctx := context.Background()
		registry, err := department.Default()
		Expect(err).NotTo(HaveOccurred())

		Expect(db.Ranks.Put(ctx, &roster.Rank{
			DepartmentCode: "acpd", Name: "Officer", PriorityIndex: 3, ExternalRoleID: "r-officer",
		})).To(Succeed())
		for _, name := range []string{"Ada", "Bob", "Cy", "Dee"} {
			createUser(ctx, name, "r-officer")
		}

		synth := roster.NewSynthesizer(roster.SynthesizerConfig{
			Departments: registry,
			Users:       db.Users,
			Ranks:       db.Ranks,
			Members:     db.Members,
			Locker:      store.NewAdvisoryLocker(pool),
		})

		var wg sync.WaitGroup
		errs := make(chan error, 4)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := synth.Synthesize(ctx, "acpd")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		members, err := db.Members.ListByDepartment(ctx, "acpd")
		Expect(err).NotTo(HaveOccurred())
		Expect(members).To(HaveLen(4))

		identifiers := map[string]bool{}
		callsigns := map[string]bool{}
		for _, m := range members {
			identifiers[m.Identifier] = true
			callsigns[m.Callsign] = true
		}
		Expect(identifiers).To(HaveLen(4))
		Expect(identifiers).To(HaveKey("ACP01A"))
		Expect(callsigns).To(HaveLen(4))
		Expect(callsigns).To(HaveKey("3-100"))
	})
})
