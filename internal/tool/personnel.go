package tool

import (
	"context"
	"fmt"
	"strings"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

// CreatePersonnel registers a worker. Without a national id the guard asks
// for it first; duplicates are keyed on national id, then exact name.
type CreatePersonnel struct{}

func (CreatePersonnel) Name() string { return "create_personnel" }
func (CreatePersonnel) Description() string {
	return "Da de alta personal con nombre y, si se conocen, DNI y teléfono."
}
func (CreatePersonnel) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"name":        {Type: "string", Description: "Nombre completo"},
		"national_id": {Type: "string", Description: "DNI"},
		"phone":       {Type: "string", Description: "Teléfono"},
		"confirmed":   {Type: "boolean", Description: "true si el usuario ya confirmó cargar a pesar de un duplicado o datos faltantes"},
	}, []string{"name"})
}

func (CreatePersonnel) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	p := domain.Personnel{
		Name:       strings.TrimSpace(ArgsString(args, "name")),
		NationalID: strings.TrimSpace(ArgsString(args, "national_id")),
		Phone:      strings.TrimSpace(ArgsString(args, "phone")),
	}
	if p.Name == "" {
		return domain.MissingData("Falta el nombre de la persona."), nil
	}
	confirmed := ArgsBool(args, "confirmed")
	if p.NationalID == "" && !confirmed {
		return domain.MissingData(
			fmt.Sprintf("Para dar de alta a %q necesito el DNI. ¿Lo tenés? Si no, decime que lo cargue igual.", p.Name),
		), nil
	}
	if out := checkPersonnelDuplicate(ctx, ts, p, confirmed); out != nil {
		return out, nil
	}
	id, err := ts.CreatePersonnel(ctx, p)
	if err != nil {
		return domain.Errorf("no pude dar de alta a la persona: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Personal %q dado de alta (id %d).", p.Name, id),
		map[string]any{"id": id, "name": p.Name, "national_id": p.NationalID},
	).Written(), nil
}

type UpdatePersonnel struct{}

func (UpdatePersonnel) Name() string { return "update_personnel" }
func (UpdatePersonnel) Description() string {
	return "Modifica datos de una persona del personal, identificada por nombre o id."
}
func (UpdatePersonnel) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"personnel_id": {Type: "integer", Description: "Id de la persona"},
		"name":         {Type: "string", Description: "Nombre actual (si no hay id)"},
		"new_name":     {Type: "string", Description: "Nuevo nombre"},
		"national_id":  {Type: "string", Description: "Nuevo DNI"},
		"phone":        {Type: "string", Description: "Nuevo teléfono"},
	}, nil)
}

func (UpdatePersonnel) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	p, out := resolvePersonnel(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if v := strings.TrimSpace(ArgsString(args, "new_name")); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(ArgsString(args, "national_id")); v != "" {
		p.NationalID = v
	}
	if v := strings.TrimSpace(ArgsString(args, "phone")); v != "" {
		p.Phone = v
	}
	if err := ts.UpdatePersonnel(ctx, *p); err != nil {
		return domain.Errorf("no pude actualizar a la persona: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Personal %q actualizado (id %d).", p.Name, p.ID),
		map[string]any{"id": p.ID, "name": p.Name},
	).Written(), nil
}

type DeletePersonnel struct{}

func (DeletePersonnel) Name() string { return "delete_personnel" }
func (DeletePersonnel) Description() string {
	return "Da de baja a una persona del personal, identificada por nombre o id."
}
func (DeletePersonnel) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"personnel_id": {Type: "integer", Description: "Id de la persona"},
		"name":         {Type: "string", Description: "Nombre (si no hay id)"},
	}, nil)
}

func (DeletePersonnel) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	p, out := resolvePersonnel(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if err := ts.DeletePersonnel(ctx, p.ID); err != nil {
		return domain.Errorf("no pude dar de baja a la persona: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Personal %q dado de baja (id %d).", p.Name, p.ID),
		map[string]any{"id": p.ID, "name": p.Name},
	).Written(), nil
}

type GetPersonnel struct{}

func (GetPersonnel) Name() string { return "get_personnel" }
func (GetPersonnel) Description() string {
	return "Lista el personal cargado, opcionalmente filtrado por nombre."
}
func (GetPersonnel) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"name": {Type: "string", Description: "Filtro por nombre (parcial)"},
	}, nil)
}

func (GetPersonnel) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	var (
		people []domain.Personnel
		err    error
	)
	if name := ArgsString(args, "name"); name != "" {
		people, err = ts.FindPersonnelByName(ctx, name)
	} else {
		people, err = ts.ListPersonnel(ctx, 0)
	}
	if err != nil {
		return domain.Errorf("no pude listar el personal: %v", err), nil
	}
	if len(people) == 0 {
		return domain.Success("No hay personal cargado.", nil), nil
	}
	lines := make([]string, 0, len(people))
	data := make([]map[string]any, 0, len(people))
	for _, p := range people {
		desc := fmt.Sprintf("- %s (id %d)", p.Name, p.ID)
		if p.NationalID != "" {
			desc += ", DNI " + p.NationalID
		}
		lines = append(lines, desc)
		data = append(data, map[string]any{"id": p.ID, "name": p.Name, "national_id": p.NationalID})
	}
	return domain.Success(
		fmt.Sprintf("Personal (%d):\n%s", len(people), strings.Join(lines, "\n")),
		map[string]any{"personnel": data},
	), nil
}
