package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAlertInsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := models.Alert{
			ID:        fmt.Sprintf("a%d", i),
			Type:      models.AlertSystem,
			Title:     "PBX unreachable",
			Message:   "probe failed",
			Priority:  models.PriorityHigh,
			Metadata:  map[string]any{"vendor": "threecx"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.InsertAlert(ctx, a); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	alerts, err := s.ListAlerts(ctx, AlertFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts", len(alerts))
	}
	if alerts[0].ID != "a2" {
		t.Fatalf("newest first expected, got %s", alerts[0].ID)
	}
	if alerts[0].Metadata["vendor"] != "threecx" {
		t.Fatalf("metadata roundtrip: %+v", alerts[0].Metadata)
	}
}

func TestAlertListFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustInsert := func(id string, typ models.AlertType, prio models.AlertPriority, acked bool) {
		t.Helper()
		if err := s.InsertAlert(ctx, models.Alert{
			ID: id, Type: typ, Title: "t", Message: "m", Priority: prio,
			Acknowledged: acked, CreatedAt: now,
		}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	mustInsert("s1", models.AlertSystem, models.PriorityHigh, false)
	mustInsert("s2", models.AlertSystem, models.PriorityLow, true)
	mustInsert("p1", models.AlertPerformance, models.PriorityHigh, false)

	got, err := s.ListAlerts(ctx, AlertFilter{Type: models.AlertSystem})
	if err != nil || len(got) != 2 {
		t.Fatalf("type filter: %d alerts, err %v", len(got), err)
	}
	unacked := false
	got, err = s.ListAlerts(ctx, AlertFilter{Priority: models.PriorityHigh, Acknowledged: &unacked})
	if err != nil || len(got) != 2 {
		t.Fatalf("priority+ack filter: %d alerts, err %v", len(got), err)
	}
}

func TestAcknowledgeAlertIsOneWay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertAlert(ctx, models.Alert{
		ID: "one", Type: models.AlertSystem, Title: "t", Message: "m",
		Priority: models.PriorityMedium, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	a, err := s.AcknowledgeAlert(ctx, "one", "alice", first)
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !a.Acknowledged || a.AcknowledgedBy != "alice" || a.AcknowledgedAt == nil {
		t.Fatalf("after first ack: %+v", a)
	}

	// Second acknowledge must not overwrite the audit trail.
	a, err = s.AcknowledgeAlert(ctx, "one", "bob", first.Add(time.Hour))
	if err != nil {
		t.Fatalf("repeat ack: %v", err)
	}
	if a.AcknowledgedBy != "alice" || !a.AcknowledgedAt.Equal(first) {
		t.Fatalf("audit fields overwritten: %+v", a)
	}

	if _, err := s.AcknowledgeAlert(ctx, "missing", "alice", first); err != ErrAlertNotFound {
		t.Fatalf("missing alert: %v", err)
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.GetSettings(ctx, "sup1")
	if err != nil || got != nil {
		t.Fatalf("unsaved user: %v, %v", got, err)
	}

	set := models.DefaultSupervisorSettings()
	set.RefreshIntervalSec = 10
	set.Thresholds.MaxQueueLength = 25
	if err := s.PutSettings(ctx, "sup1", set); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err = s.GetSettings(ctx, "sup1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RefreshIntervalSec != 10 || got.Thresholds.MaxQueueLength != 25 {
		t.Fatalf("roundtrip: %+v", got)
	}

	// Upsert replaces.
	set.SoundAlerts = true
	if err := s.PutSettings(ctx, "sup1", set); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, _ = s.GetSettings(ctx, "sup1")
	if !got.SoundAlerts {
		t.Fatal("upsert did not replace")
	}
}

func TestConfigActivationInvariant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfgA := models.PBXConnectionConfig{Vendor: models.VendorThreeCX, ServerURL: "https://a.example", APIKey: "k1", Enabled: true}
	cfgB := models.PBXConnectionConfig{Vendor: models.VendorThreeCX, ServerURL: "https://b.example", APIKey: "k2", Enabled: true}
	for _, c := range []models.PBXConnectionConfig{cfgA, cfgB} {
		if err := s.UpsertConfig(ctx, c); err != nil {
			t.Fatalf("upsert %s: %v", c.ServerURL, err)
		}
	}

	// No activation yet.
	active, err := s.ActiveConfig(ctx, models.VendorThreeCX)
	if err != nil || active != nil {
		t.Fatalf("before activation: %v, %v", active, err)
	}

	if err := s.SetActiveConfig(ctx, models.VendorThreeCX, "https://a.example"); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if err := s.SetActiveConfig(ctx, models.VendorThreeCX, "https://b.example"); err != nil {
		t.Fatalf("activate b: %v", err)
	}

	active, err = s.ActiveConfig(ctx, models.VendorThreeCX)
	if err != nil || active == nil {
		t.Fatalf("after activation: %v, %v", active, err)
	}
	if active.ServerURL != "https://b.example" {
		t.Fatalf("active = %s, want the later activation", active.ServerURL)
	}

	// Exactly one row active.
	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM pbx_configs WHERE vendor = ? AND active = 1`, models.VendorThreeCX).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("%d active rows", count)
	}

	if err := s.SetActiveConfig(ctx, models.VendorThreeCX, "https://nope.example"); err != ErrConfigNotFound {
		t.Fatalf("unknown URL: %v", err)
	}
}

func TestUpsertConfigPreservesActivation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := models.PBXConnectionConfig{Vendor: models.VendorYeastar, ServerURL: "https://y.example", APIKey: "k", Enabled: true}
	if err := s.UpsertConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetActiveConfig(ctx, models.VendorYeastar, "https://y.example"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	cfg.APIKey = "rotated"
	if err := s.UpsertConfig(ctx, cfg); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	active, err := s.ActiveConfig(ctx, models.VendorYeastar)
	if err != nil || active == nil {
		t.Fatalf("after re-upsert: %v, %v", active, err)
	}
	if active.APIKey != "rotated" {
		t.Fatalf("api key not updated: %s", active.APIKey)
	}
}

func TestUsersAndSeedAdmin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SeedAdmin(ctx, "secret123"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	u, ok := s.CheckPassword(ctx, "admin", "secret123")
	if !ok || u.Role != RoleAdmin {
		t.Fatalf("admin login: ok=%v role=%s", ok, u.Role)
	}
	if _, ok := s.CheckPassword(ctx, "admin", "wrong"); ok {
		t.Fatal("wrong password accepted")
	}

	// Seeding again must not reset the password.
	if err := s.SeedAdmin(ctx, "different"); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if _, ok := s.CheckPassword(ctx, "admin", "different"); ok {
		t.Fatal("re-seed replaced the existing admin")
	}

	if err := s.CreateUser(ctx, "jane", "pw1234", RoleSupervisor); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, err := s.GetUser(ctx, "jane")
	if err != nil || u.Role != RoleSupervisor {
		t.Fatalf("get jane: %+v, %v", u, err)
	}
	if _, err := s.GetUser(ctx, "nobody"); err != ErrUserNotFound {
		t.Fatalf("missing user: %v", err)
	}
}
