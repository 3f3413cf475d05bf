package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

const maxCandidates = 10

// checkFieldDuplicate blocks a second field with the same name in the same
// tenant unless the caller already confirmed.
func checkFieldDuplicate(ctx context.Context, ts *store.TenantStore, name string, confirmed bool) *domain.ToolOutcome {
	if confirmed {
		return nil
	}
	matches, err := ts.FindFieldByName(ctx, name)
	if err != nil {
		return domain.Errorf("error verificando duplicados: %v", err)
	}
	for _, f := range matches {
		if strings.EqualFold(f.Name, name) {
			return domain.Duplicate(
				fmt.Sprintf("Ya existe un campo llamado %q (id %d, %.0f ha). ¿Querés crearlo igual o te referías a ese?", f.Name, f.ID, f.Hectares),
				map[string]any{"existing_id": f.ID, "existing_name": f.Name},
			)
		}
	}
	return nil
}

// checkClientDuplicate keys on tax id first, then on the exact name, so a
// renamed client with the same tax id is still caught.
func checkClientDuplicate(ctx context.Context, ts *store.TenantStore, c domain.Client, confirmed bool) *domain.ToolOutcome {
	if confirmed {
		return nil
	}
	if c.TaxID != "" {
		existing, err := ts.FindClientByTaxID(ctx, c.TaxID)
		if err != nil {
			return domain.Errorf("error verificando duplicados: %v", err)
		}
		if existing != nil {
			return domain.Duplicate(
				fmt.Sprintf("Ya existe un cliente con CUIT %s: %q (id %d). ¿Querés crearlo igual o te referías a ese?", c.TaxID, existing.Name, existing.ID),
				map[string]any{"existing_id": existing.ID, "existing_name": existing.Name},
			)
		}
	}
	matches, err := ts.FindClientByName(ctx, c.Name)
	if err != nil {
		return domain.Errorf("error verificando duplicados: %v", err)
	}
	for _, m := range matches {
		if strings.EqualFold(m.Name, c.Name) {
			return domain.Duplicate(
				fmt.Sprintf("Ya existe un cliente llamado %q (id %d). ¿Querés crearlo igual o te referías a ese?", m.Name, m.ID),
				map[string]any{"existing_id": m.ID, "existing_name": m.Name},
			)
		}
	}
	return nil
}

// checkPersonnelDuplicate keys on national id first, then on the exact name.
func checkPersonnelDuplicate(ctx context.Context, ts *store.TenantStore, p domain.Personnel, confirmed bool) *domain.ToolOutcome {
	if confirmed {
		return nil
	}
	if p.NationalID != "" {
		existing, err := ts.FindPersonnelByNationalID(ctx, p.NationalID)
		if err != nil {
			return domain.Errorf("error verificando duplicados: %v", err)
		}
		if existing != nil {
			return domain.Duplicate(
				fmt.Sprintf("Ya existe personal con DNI %s: %q (id %d). ¿Querés cargarlo igual o te referías a esa persona?", p.NationalID, existing.Name, existing.ID),
				map[string]any{"existing_id": existing.ID, "existing_name": existing.Name},
			)
		}
	}
	matches, err := ts.FindPersonnelByName(ctx, p.Name)
	if err != nil {
		return domain.Errorf("error verificando duplicados: %v", err)
	}
	for _, m := range matches {
		if strings.EqualFold(m.Name, p.Name) {
			return domain.Duplicate(
				fmt.Sprintf("Ya existe personal llamado %q (id %d). ¿Querés cargarlo igual o te referías a esa persona?", m.Name, m.ID),
				map[string]any{"existing_id": m.ID, "existing_name": m.Name},
			)
		}
	}
	return nil
}

// findWorkOrderTarget resolves the work order an update or delete refers
// to, either by explicit id or by narrowing attributes. Exactly one match
// proceeds; several become a candidate listing capped at maxCandidates.
func findWorkOrderTarget(ctx context.Context, ts *store.TenantStore, args map[string]any, now time.Time) (*domain.WorkOrder, *domain.ToolOutcome) {
	if id, ok := ArgsInt64(args, "work_order_id"); ok && id > 0 {
		w, err := ts.GetWorkOrder(ctx, id)
		if err != nil {
			return nil, domain.Errorf("error buscando el trabajo id %d: %v", id, err)
		}
		if w == nil {
			return nil, domain.Errorf("no existe un trabajo con id %d.", id)
		}
		return w, nil
	}

	var filter store.WorkFilter
	if name := ArgsString(args, "field_name"); name != "" {
		f, out := resolveField(ctx, ts, name)
		if out != nil {
			return nil, out
		}
		filter.FieldID = f.ID
	}
	if name := ArgsString(args, "work_type"); name != "" {
		wt, out := resolveWorkType(ctx, ts, name)
		if out != nil {
			return nil, out
		}
		filter.WorkTypeID = wt.ID
	}
	if crop := ArgsString(args, "crop"); crop != "" {
		filter.Crop = crop
	}
	if raw := ArgsString(args, "start_date"); raw != "" {
		d, out := parseDateArg(args, "start_date", time.Time{}, now)
		if out != nil {
			return nil, out
		}
		filter.StartDate = &d
	}
	if filter == (store.WorkFilter{}) {
		return nil, domain.MissingData("Necesito algún dato para identificar el trabajo: campo, tipo de trabajo, fecha o id.")
	}

	matches, err := ts.FindWorkOrders(ctx, filter, maxCandidates+1)
	if err != nil {
		return nil, domain.Errorf("error buscando trabajos: %v", err)
	}
	switch len(matches) {
	case 0:
		return nil, domain.Errorf("no encontré ningún trabajo con esos datos.")
	case 1:
		return &matches[0], nil
	}

	lines := make([]string, 0, maxCandidates)
	for i, w := range matches {
		if i == maxCandidates {
			break
		}
		lines = append(lines, describeWorkOrder(w))
	}
	return nil, domain.Multiple(
		fmt.Sprintf("Encontré %d trabajos que coinciden:\n%s\nIndicá el id o agregá más datos (cultivo, fecha).",
			len(matches), strings.Join(lines, "\n")),
		map[string]any{"candidates": lines},
	)
}

func describeWorkOrder(w domain.WorkOrder) string {
	return fmt.Sprintf("- id %d: %s en %s, cultivo %s, inicio %s, estado %s",
		w.ID, w.WorkType, w.FieldName, w.Crop, w.StartDate.Format("2006-01-02"), w.Status)
}
