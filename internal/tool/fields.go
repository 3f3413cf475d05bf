package tool

import (
	"context"
	"fmt"
	"strings"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

// CreateField registers a field. Duplicate names inside the tenant are
// blocked until the caller confirms.
type CreateField struct{}

func (CreateField) Name() string { return "create_field" }
func (CreateField) Description() string {
	return "Crea un campo (lote) con nombre, hectáreas y detalles opcionales."
}
func (CreateField) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"name":      {Type: "string", Description: "Nombre del campo"},
		"hectares":  {Type: "number", Description: "Superficie en hectáreas"},
		"details":   {Type: "string", Description: "Detalles adicionales"},
		"confirmed": {Type: "boolean", Description: "true si el usuario ya confirmó crear a pesar de un duplicado"},
	}, []string{"name"})
}

func (CreateField) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	name := strings.TrimSpace(ArgsString(args, "name"))
	if name == "" {
		return domain.MissingData("Falta el nombre del campo."), nil
	}
	if out := checkFieldDuplicate(ctx, ts, name, ArgsBool(args, "confirmed")); out != nil {
		return out, nil
	}
	hectares, _ := ArgsFloat(args, "hectares")
	if hectares < 0 {
		return domain.Errorf("las hectáreas no pueden ser negativas."), nil
	}
	f := domain.Field{Name: name, Hectares: hectares, Details: ArgsString(args, "details")}
	id, err := ts.CreateField(ctx, f)
	if err != nil {
		return domain.Errorf("no pude crear el campo: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Campo %q creado (id %d, %.0f ha).", name, id, hectares),
		map[string]any{"id": id, "name": name, "hectares": hectares},
	).Written(), nil
}

type UpdateField struct{}

func (UpdateField) Name() string { return "update_field" }
func (UpdateField) Description() string {
	return "Modifica un campo existente, identificado por nombre o id. Solo cambia los datos provistos."
}
func (UpdateField) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"field_id": {Type: "integer", Description: "Id del campo"},
		"name":     {Type: "string", Description: "Nombre actual del campo (si no hay id)"},
		"new_name": {Type: "string", Description: "Nuevo nombre"},
		"hectares": {Type: "number", Description: "Nueva superficie en hectáreas"},
		"details":  {Type: "string", Description: "Nuevos detalles"},
	}, nil)
}

func (UpdateField) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	f, out := lookupFieldArg(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if v := strings.TrimSpace(ArgsString(args, "new_name")); v != "" {
		f.Name = v
	}
	if v, ok := ArgsFloat(args, "hectares"); ok {
		if v < 0 {
			return domain.Errorf("las hectáreas no pueden ser negativas."), nil
		}
		f.Hectares = v
	}
	if v := ArgsString(args, "details"); v != "" {
		f.Details = v
	}
	if err := ts.UpdateField(ctx, *f); err != nil {
		return domain.Errorf("no pude actualizar el campo: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Campo %q actualizado (id %d, %.0f ha).", f.Name, f.ID, f.Hectares),
		map[string]any{"id": f.ID, "name": f.Name, "hectares": f.Hectares},
	).Written(), nil
}

type DeleteField struct{}

func (DeleteField) Name() string { return "delete_field" }
func (DeleteField) Description() string {
	return "Elimina un campo, identificado por nombre o id."
}
func (DeleteField) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"field_id": {Type: "integer", Description: "Id del campo"},
		"name":     {Type: "string", Description: "Nombre del campo (si no hay id)"},
	}, nil)
}

func (DeleteField) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	f, out := lookupFieldArg(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if err := ts.DeleteField(ctx, f.ID); err != nil {
		return domain.Errorf("no pude eliminar el campo: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Campo %q eliminado (id %d).", f.Name, f.ID),
		map[string]any{"id": f.ID, "name": f.Name},
	).Written(), nil
}

type GetFields struct{}

func (GetFields) Name() string { return "get_fields" }
func (GetFields) Description() string {
	return "Lista los campos cargados, opcionalmente filtrados por nombre."
}
func (GetFields) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"name": {Type: "string", Description: "Filtro por nombre (parcial)"},
	}, nil)
}

func (GetFields) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	var (
		fields []domain.Field
		err    error
	)
	if name := ArgsString(args, "name"); name != "" {
		fields, err = ts.FindFieldByName(ctx, name)
	} else {
		fields, err = ts.ListFields(ctx, 0)
	}
	if err != nil {
		return domain.Errorf("no pude listar los campos: %v", err), nil
	}
	if len(fields) == 0 {
		return domain.Success("No hay campos cargados.", nil), nil
	}
	lines := make([]string, 0, len(fields))
	data := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("- %s: %.0f ha (id %d)", f.Name, f.Hectares, f.ID))
		data = append(data, map[string]any{"id": f.ID, "name": f.Name, "hectares": f.Hectares, "details": f.Details})
	}
	return domain.Success(
		fmt.Sprintf("Campos (%d):\n%s", len(fields), strings.Join(lines, "\n")),
		map[string]any{"fields": data},
	), nil
}

// lookupFieldArg resolves the field an update or delete points at, by id
// when present, otherwise by name.
func lookupFieldArg(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.Field, *domain.ToolOutcome) {
	if id, ok := ArgsInt64(args, "field_id"); ok && id > 0 {
		f, err := ts.GetField(ctx, id)
		if err != nil {
			return nil, domain.Errorf("error buscando el campo id %d: %v", id, err)
		}
		if f == nil {
			return nil, domain.Errorf("no existe un campo con id %d.", id)
		}
		return f, nil
	}
	return resolveField(ctx, ts, strings.TrimSpace(ArgsString(args, "name")))
}
