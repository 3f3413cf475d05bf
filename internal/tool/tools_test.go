package tool

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTenant(t *testing.T, s *store.Store, name, phone string) *store.TenantStore {
	t.Helper()
	id, err := s.CreateUser(context.Background(), domain.User{Name: name, Phone: phone, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return s.ForTenant(id)
}

// exec runs one tool and fails the test on a transport-level error. The
// outcome is returned for status assertions.
func exec(t *testing.T, tl Tool, ts *store.TenantStore, args map[string]any) *domain.ToolOutcome {
	t.Helper()
	out, err := tl.Execute(context.Background(), ts, args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out
}

func mustSucceed(t *testing.T, tl Tool, ts *store.TenantStore, args map[string]any) *domain.ToolOutcome {
	t.Helper()
	out := exec(t, tl, ts, args)
	if out.Status != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s: %s", out.Status, out.Message)
	}
	return out
}

func TestCreateFieldDuplicateGuard(t *testing.T) {
	s := testStore(t)
	tenantA := testTenant(t, s, "Ana", "+5491100000001")
	tenantB := testTenant(t, s, "Bruno", "+5491100000002")

	args := map[string]any{"name": "La Esperanza", "hectares": 120.0}
	out := mustSucceed(t, CreateField{}, tenantA, args)
	if !out.Write {
		t.Error("create outcome not marked as write")
	}

	// Same tenant, same name: blocked with a question.
	dup := exec(t, CreateField{}, tenantA, args)
	if dup.Status != domain.OutcomeDuplicate {
		t.Fatalf("status = %s, want duplicate_found", dup.Status)
	}
	if !strings.Contains(dup.Message, "La Esperanza") {
		t.Errorf("duplicate message lacks the name: %s", dup.Message)
	}

	// Explicit confirmation goes through.
	mustSucceed(t, CreateField{}, tenantA, map[string]any{
		"name": "La Esperanza", "hectares": 50.0, "confirmed": true,
	})

	// Another tenant is never a duplicate.
	mustSucceed(t, CreateField{}, tenantB, args)
}

func TestCreateClientGuards(t *testing.T) {
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")

	// No tax id and no phone: the guard asks before writing.
	out := exec(t, CreateClient{}, ts, map[string]any{"name": "La Rural"})
	if out.Status != domain.OutcomeMissingData {
		t.Fatalf("status = %s, want missing_data", out.Status)
	}

	mustSucceed(t, CreateClient{}, ts, map[string]any{
		"name": "La Rural", "tax_id": "30-11111111-1",
	})

	// Same tax id under a different name is still a duplicate.
	dup := exec(t, CreateClient{}, ts, map[string]any{
		"name": "La Rural S.A.", "tax_id": "30-11111111-1",
	})
	if dup.Status != domain.OutcomeDuplicate {
		t.Fatalf("status = %s, want duplicate_found", dup.Status)
	}
	if !strings.Contains(dup.Message, "30-11111111-1") {
		t.Errorf("duplicate message lacks the tax id: %s", dup.Message)
	}

	// confirmed bypasses both guards.
	mustSucceed(t, CreateClient{}, ts, map[string]any{
		"name": "Sin Datos", "confirmed": true,
	})
}

func TestCreatePersonnelAsksForNationalID(t *testing.T) {
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")

	out := exec(t, CreatePersonnel{}, ts, map[string]any{"name": "Carlos"})
	if out.Status != domain.OutcomeMissingData {
		t.Fatalf("status = %s, want missing_data", out.Status)
	}

	mustSucceed(t, CreatePersonnel{}, ts, map[string]any{
		"name": "Carlos", "national_id": "30111222",
	})

	dup := exec(t, CreatePersonnel{}, ts, map[string]any{
		"name": "Carlos Gómez", "national_id": "30111222",
	})
	if dup.Status != domain.OutcomeDuplicate {
		t.Fatalf("status = %s, want duplicate_found", dup.Status)
	}
}

func TestHectareCapOnAssignment(t *testing.T) {
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")

	mustSucceed(t, CreateField{}, ts, map[string]any{"name": "La Esperanza", "hectares": 100.0})
	mustSucceed(t, CreateWorkOrder{Now: fixedNow}, ts, map[string]any{
		"work_type": "siembra", "field_name": "La Esperanza", "crop": "soja", "start_date": "15/03/2024",
	})
	mustSucceed(t, CreatePersonnel{}, ts, map[string]any{"name": "Carlos", "national_id": "30111222"})
	mustSucceed(t, CreatePersonnel{}, ts, map[string]any{"name": "Pedro", "national_id": "28333444"})

	assign := AssignPersonnelToWork{Now: fixedNow}
	mustSucceed(t, assign, ts, map[string]any{
		"field_name": "La Esperanza", "work_type": "siembra",
		"personnel_name": "Carlos", "hectares": 80.0,
	})

	// 80 of 100 logged: 25 more overflows.
	over := exec(t, assign, ts, map[string]any{
		"field_name": "La Esperanza", "work_type": "siembra",
		"personnel_name": "Pedro", "hectares": 25.0,
	})
	if over.Status != domain.OutcomeError {
		t.Fatalf("status = %s, want error", over.Status)
	}
	for _, want := range []string{"100", "80", "20"} {
		if !strings.Contains(over.Message, want) {
			t.Errorf("cap message lacks %q: %s", want, over.Message)
		}
	}

	// 20 fits exactly.
	mustSucceed(t, assign, ts, map[string]any{
		"field_name": "La Esperanza", "work_type": "siembra",
		"personnel_name": "Pedro", "hectares": 20.0,
	})
}

func TestUpdateWorkOrderDisambiguation(t *testing.T) {
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")

	mustSucceed(t, CreateField{}, ts, map[string]any{"name": "La Esperanza", "hectares": 100.0})
	create := CreateWorkOrder{Now: fixedNow}
	mustSucceed(t, create, ts, map[string]any{
		"work_type": "siembra", "field_name": "La Esperanza", "crop": "soja", "start_date": "15/03/2024",
	})
	mustSucceed(t, create, ts, map[string]any{
		"work_type": "siembra", "field_name": "La Esperanza", "crop": "maíz", "start_date": "20/03/2024",
	})

	update := UpdateWorkOrder{Now: fixedNow}

	// Two orders match field+type: candidates, no write.
	out := exec(t, update, ts, map[string]any{
		"field_name": "La Esperanza", "work_type": "siembra", "new_status": domain.StatusCompleted,
	})
	if out.Status != domain.OutcomeMultiple {
		t.Fatalf("status = %s, want multiple_matches", out.Status)
	}
	if !strings.Contains(out.Message, "soja") || !strings.Contains(out.Message, "maíz") {
		t.Errorf("candidate list incomplete: %s", out.Message)
	}

	// Narrowing by crop reaches exactly one.
	done := mustSucceed(t, update, ts, map[string]any{
		"field_name": "La Esperanza", "work_type": "siembra", "crop": "soja",
		"new_status": domain.StatusCompleted,
	})
	if !strings.Contains(done.Message, domain.StatusCompleted) {
		t.Errorf("confirmation lacks new status: %s", done.Message)
	}

	// Zero matches is an error outcome.
	none := exec(t, update, ts, map[string]any{
		"field_name": "La Esperanza", "work_type": "cosecha", "new_status": domain.StatusCompleted,
	})
	if none.Status != domain.OutcomeError {
		t.Fatalf("status = %s, want error", none.Status)
	}
}

func TestCreateCostDefaultsAndParsing(t *testing.T) {
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")
	create := CreateCost{Now: fixedNow}

	// String amount with Argentinian separators, date defaults to today.
	out := mustSucceed(t, create, ts, map[string]any{
		"amount": "$50.000,00", "description": "gasoil",
	})
	if out.Data["amount"] != 50000.0 {
		t.Errorf("amount = %v, want 50000", out.Data["amount"])
	}
	// Payee fell back to the description.
	if out.Data["payee"] != "gasoil" {
		t.Errorf("payee = %v, want gasoil", out.Data["payee"])
	}
	if out.Data["date"] != "2024-06-10" {
		t.Errorf("date = %v, want 2024-06-10", out.Data["date"])
	}

	// Neither payee nor description.
	bare := mustSucceed(t, create, ts, map[string]any{"amount": 1000.0})
	if bare.Data["payee"] != "Sin especificar" {
		t.Errorf("payee = %v, want Sin especificar", bare.Data["payee"])
	}

	// Zero amount is rejected before any write.
	zero := exec(t, create, ts, map[string]any{"amount": 0.0})
	if zero.Status == domain.OutcomeSuccess {
		t.Error("zero amount accepted")
	}
}

func TestRegistryUnknownToolIsOutcome(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")

	r := NewRegistry(testLogger())
	RegisterAll(r, fixedNow)

	if got := len(r.Names()); got != 23 {
		t.Errorf("registered tools = %d, want 23", got)
	}

	out, err := r.Execute(ctx, ts, "no_such_tool", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Status != domain.OutcomeError {
		t.Fatalf("status = %s, want error", out.Status)
	}
}

func TestCreateWorkOrderDefaults(t *testing.T) {
	s := testStore(t)
	ts := testTenant(t, s, "Ana", "+5491100000001")

	mustSucceed(t, CreateField{}, ts, map[string]any{"name": "Lote Norte", "hectares": 50.0})

	// No crop, no date: defaults applied, future planning allowed elsewhere.
	out := mustSucceed(t, CreateWorkOrder{Now: fixedNow}, ts, map[string]any{
		"work_type": "cosecha", "field_name": "Lote Norte",
	})
	if out.Data["crop"] != domain.CropUnspecified {
		t.Errorf("crop = %v, want %q", out.Data["crop"], domain.CropUnspecified)
	}
	if out.Data["status"] != domain.StatusPending {
		t.Errorf("status = %v, want %q", out.Data["status"], domain.StatusPending)
	}
	if out.Data["start_date"] != "2024-06-10" {
		t.Errorf("start_date = %v, want today", out.Data["start_date"])
	}

	// A future date is accepted without complaint.
	future := mustSucceed(t, CreateWorkOrder{Now: fixedNow}, ts, map[string]any{
		"work_type": "siembra", "field_name": "Lote Norte", "start_date": "15/12/2026",
	})
	if future.Data["start_date"] != "2026-12-15" {
		t.Errorf("future start_date = %v", future.Data["start_date"])
	}

	// Unknown field is an error naming the field.
	missing := exec(t, CreateWorkOrder{Now: fixedNow}, ts, map[string]any{
		"work_type": "siembra", "field_name": "No Existe",
	})
	if missing.Status != domain.OutcomeError || !strings.Contains(missing.Message, "No Existe") {
		t.Errorf("outcome = %s: %s", missing.Status, missing.Message)
	}
}
