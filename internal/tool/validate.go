package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/extract"
	"agrobot/internal/store"
)

// resolveField looks a field up by name for FK use. Exactly one match
// proceeds; zero or many become branch outcomes the orchestrator relays.
func resolveField(ctx context.Context, ts *store.TenantStore, name string) (*domain.Field, *domain.ToolOutcome) {
	if name == "" {
		return nil, domain.MissingData("Falta el nombre del campo. ¿En qué campo es el trabajo?")
	}
	matches, err := ts.FindFieldByName(ctx, name)
	if err != nil {
		return nil, domain.Errorf("error buscando el campo %q: %v", name, err)
	}
	switch len(matches) {
	case 0:
		return nil, domain.Errorf("no encontré ningún campo llamado %q. Podés crearlo primero con su nombre y hectáreas.", name)
	case 1:
		return &matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, f := range matches {
		names = append(names, fmt.Sprintf("%s (id %d, %.0f ha)", f.Name, f.ID, f.Hectares))
	}
	return nil, domain.Multiple(
		fmt.Sprintf("Hay varios campos que coinciden con %q: %s. ¿A cuál te referís?", name, strings.Join(names, ", ")),
		map[string]any{"candidates": names},
	)
}

func resolveWorkType(ctx context.Context, ts *store.TenantStore, name string) (*domain.WorkType, *domain.ToolOutcome) {
	if name == "" {
		return nil, domain.MissingData("Falta el tipo de trabajo (siembra, cosecha, pulverización, fertilización, labranza, arado o rastra).")
	}
	wt, err := ts.FindWorkType(ctx, name)
	if err != nil {
		return nil, domain.Errorf("error buscando el tipo de trabajo %q: %v", name, err)
	}
	if wt == nil {
		types, terr := ts.ListWorkTypes(ctx)
		valid := make([]string, 0, len(types))
		if terr == nil {
			for _, t := range types {
				valid = append(valid, t.Name)
			}
		}
		return nil, domain.Errorf("no reconozco el tipo de trabajo %q. Los tipos válidos son: %s.", name, strings.Join(valid, ", "))
	}
	return wt, nil
}

func resolvePersonnel(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.Personnel, *domain.ToolOutcome) {
	if id, ok := ArgsInt64(args, "personnel_id"); ok && id > 0 {
		p, err := ts.GetPersonnel(ctx, id)
		if err != nil {
			return nil, domain.Errorf("error buscando personal id %d: %v", id, err)
		}
		if p == nil {
			return nil, domain.Errorf("no existe personal con id %d.", id)
		}
		return p, nil
	}
	name := ArgsString(args, "name")
	if name == "" {
		name = ArgsString(args, "personnel_name")
	}
	if name == "" {
		return nil, domain.MissingData("Falta el nombre o id de la persona.")
	}
	matches, err := ts.FindPersonnelByName(ctx, name)
	if err != nil {
		return nil, domain.Errorf("error buscando a %q: %v", name, err)
	}
	switch len(matches) {
	case 0:
		return nil, domain.Errorf("no encontré personal llamado %q.", name)
	case 1:
		return &matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, fmt.Sprintf("%s (id %d)", p.Name, p.ID))
	}
	return nil, domain.Multiple(
		fmt.Sprintf("Hay varias personas que coinciden con %q: %s. Indicá el id.", name, strings.Join(names, ", ")),
		map[string]any{"candidates": names},
	)
}

// parseDateArg reads a date argument through the Spanish parser. A missing
// argument falls back to def when nonzero.
func parseDateArg(args map[string]any, key string, def time.Time, now time.Time) (time.Time, *domain.ToolOutcome) {
	raw := ArgsString(args, key)
	if raw == "" {
		if !def.IsZero() {
			return def, nil
		}
		return time.Time{}, domain.MissingData("Falta la fecha. ¿Para qué día es?")
	}
	d, ok := extract.ParseDate(raw, now)
	if !ok {
		return time.Time{}, domain.Errorf("no pude interpretar la fecha %q. Usá un formato como 15/03/2024 o \"15 de marzo\".", raw)
	}
	return d, nil
}

// parseAmountArg reads a monetary argument through the separator rules.
func parseAmountArg(args map[string]any, key string) (float64, *domain.ToolOutcome) {
	if f, ok := ArgsFloat(args, key); ok {
		if f <= 0 {
			return 0, domain.Errorf("el monto debe ser mayor que cero.")
		}
		return f, nil
	}
	raw := ArgsString(args, key)
	if raw == "" {
		return 0, domain.MissingData("Falta el monto del costo.")
	}
	n, ok := extract.ParseAmount(raw)
	if !ok {
		return 0, domain.Errorf("no pude interpretar el monto %q.", raw)
	}
	if n <= 0 {
		return 0, domain.Errorf("el monto debe ser mayor que cero.")
	}
	return n, nil
}

func validStatus(s string) bool {
	switch s {
	case domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted, domain.StatusCancelled:
		return true
	}
	return false
}

var statusEnum = []string{
	domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted, domain.StatusCancelled,
}
