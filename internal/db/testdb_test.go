package db_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

// openTestDB opens a fresh named in-memory database per test. The shared
// cache keeps the database alive across the pool's connections.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	gdb, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

// fixture is the minimal org graph most service tests need.
type fixture struct {
	Company  models.Company
	Project  models.Project
	User     models.User
	Admin    models.User
	WorkItem models.WorkItem
}

// seed creates a company with capture enabled, one member with the agent
// online, one admin, a project, and a capture-enabled work item.
func seed(t *testing.T, gdb *gorm.DB) fixture {
	t.Helper()
	f := fixture{}

	f.Company = models.Company{Name: "Acme", ScreenCaptureEnabled: true}
	mustCreate(t, gdb, &f.Company)

	f.User = models.User{CompanyID: f.Company.ID, Name: "Dana", AgentOnline: true}
	mustCreate(t, gdb, &f.User)

	f.Admin = models.User{CompanyID: f.Company.ID, Name: "Morgan", AgentOnline: true}
	mustCreate(t, gdb, &f.Admin)

	f.Project = models.Project{CompanyID: f.Company.ID, Name: "Apollo"}
	mustCreate(t, gdb, &f.Project)

	f.WorkItem = models.WorkItem{
		ProjectID:            f.Project.ID,
		Title:                "Implement billing export",
		ScreenCaptureEnabled: true,
	}
	mustCreate(t, gdb, &f.WorkItem)

	return f
}

func mustCreate(t *testing.T, gdb *gorm.DB, value any) {
	t.Helper()
	if err := gdb.Create(value).Error; err != nil {
		t.Fatalf("seeding %T: %v", value, err)
	}
}

func reloadUser(t *testing.T, gdb *gorm.DB, id uint) models.User {
	t.Helper()
	var u models.User
	if err := gdb.First(&u, id).Error; err != nil {
		t.Fatalf("reloading user %d: %v", id, err)
	}
	return u
}

func reloadSession(t *testing.T, gdb *gorm.DB, id uint) models.Session {
	t.Helper()
	var s models.Session
	if err := gdb.First(&s, id).Error; err != nil {
		t.Fatalf("reloading session %d: %v", id, err)
	}
	return s
}

// clock is a controllable time source for the services' now hook.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
