package tool

import (
	"context"
	"fmt"
	"strings"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

// CreateClient registers a client. Without tax id or phone the guard asks
// for one of them first; duplicates are keyed on tax id, then exact name.
type CreateClient struct{}

func (CreateClient) Name() string { return "create_client" }
func (CreateClient) Description() string {
	return "Crea un cliente con nombre y, si se conocen, CUIT, teléfono, email y dirección."
}
func (CreateClient) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"name":      {Type: "string", Description: "Nombre o razón social"},
		"tax_id":    {Type: "string", Description: "CUIT"},
		"phone":     {Type: "string", Description: "Teléfono"},
		"email":     {Type: "string", Description: "Email"},
		"address":   {Type: "string", Description: "Dirección"},
		"notes":     {Type: "string", Description: "Notas"},
		"confirmed": {Type: "boolean", Description: "true si el usuario ya confirmó crear a pesar de un duplicado o datos faltantes"},
	}, []string{"name"})
}

func (CreateClient) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	c := domain.Client{
		Name:    strings.TrimSpace(ArgsString(args, "name")),
		TaxID:   strings.TrimSpace(ArgsString(args, "tax_id")),
		Phone:   strings.TrimSpace(ArgsString(args, "phone")),
		Email:   ArgsString(args, "email"),
		Address: ArgsString(args, "address"),
		Notes:   ArgsString(args, "notes"),
	}
	if c.Name == "" {
		return domain.MissingData("Falta el nombre del cliente."), nil
	}
	confirmed := ArgsBool(args, "confirmed")
	if c.TaxID == "" && c.Phone == "" && !confirmed {
		return domain.MissingData(
			fmt.Sprintf("Para cargar al cliente %q necesito el CUIT o un teléfono. ¿Tenés alguno? Si no, decime que lo cargue igual.", c.Name),
		), nil
	}
	if out := checkClientDuplicate(ctx, ts, c, confirmed); out != nil {
		return out, nil
	}
	id, err := ts.CreateClient(ctx, c)
	if err != nil {
		return domain.Errorf("no pude crear el cliente: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Cliente %q creado (id %d).", c.Name, id),
		map[string]any{"id": id, "name": c.Name, "tax_id": c.TaxID},
	).Written(), nil
}

type UpdateClient struct{}

func (UpdateClient) Name() string { return "update_client" }
func (UpdateClient) Description() string {
	return "Modifica un cliente existente, identificado por nombre o id. Solo cambia los datos provistos."
}
func (UpdateClient) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"client_id": {Type: "integer", Description: "Id del cliente"},
		"name":      {Type: "string", Description: "Nombre actual (si no hay id)"},
		"new_name":  {Type: "string", Description: "Nuevo nombre"},
		"tax_id":    {Type: "string", Description: "Nuevo CUIT"},
		"phone":     {Type: "string", Description: "Nuevo teléfono"},
		"email":     {Type: "string", Description: "Nuevo email"},
		"address":   {Type: "string", Description: "Nueva dirección"},
		"notes":     {Type: "string", Description: "Nuevas notas"},
	}, nil)
}

func (UpdateClient) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	c, out := lookupClientArg(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if v := strings.TrimSpace(ArgsString(args, "new_name")); v != "" {
		c.Name = v
	}
	for key, dst := range map[string]*string{
		"tax_id": &c.TaxID, "phone": &c.Phone, "email": &c.Email,
		"address": &c.Address, "notes": &c.Notes,
	} {
		if v := ArgsString(args, key); v != "" {
			*dst = v
		}
	}
	if err := ts.UpdateClient(ctx, *c); err != nil {
		return domain.Errorf("no pude actualizar el cliente: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Cliente %q actualizado (id %d).", c.Name, c.ID),
		map[string]any{"id": c.ID, "name": c.Name},
	).Written(), nil
}

type DeleteClient struct{}

func (DeleteClient) Name() string { return "delete_client" }
func (DeleteClient) Description() string {
	return "Elimina un cliente, identificado por nombre o id."
}
func (DeleteClient) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"client_id": {Type: "integer", Description: "Id del cliente"},
		"name":      {Type: "string", Description: "Nombre del cliente (si no hay id)"},
	}, nil)
}

func (DeleteClient) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	c, out := lookupClientArg(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if err := ts.DeleteClient(ctx, c.ID); err != nil {
		return domain.Errorf("no pude eliminar el cliente: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Cliente %q eliminado (id %d).", c.Name, c.ID),
		map[string]any{"id": c.ID, "name": c.Name},
	).Written(), nil
}

type GetClients struct{}

func (GetClients) Name() string { return "get_clients" }
func (GetClients) Description() string {
	return "Lista los clientes cargados, opcionalmente filtrados por nombre."
}
func (GetClients) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"name": {Type: "string", Description: "Filtro por nombre (parcial)"},
	}, nil)
}

func (GetClients) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	var (
		clients []domain.Client
		err     error
	)
	if name := ArgsString(args, "name"); name != "" {
		clients, err = ts.FindClientByName(ctx, name)
	} else {
		clients, err = ts.ListClients(ctx, 0)
	}
	if err != nil {
		return domain.Errorf("no pude listar los clientes: %v", err), nil
	}
	if len(clients) == 0 {
		return domain.Success("No hay clientes cargados.", nil), nil
	}
	lines := make([]string, 0, len(clients))
	data := make([]map[string]any, 0, len(clients))
	for _, c := range clients {
		desc := fmt.Sprintf("- %s (id %d)", c.Name, c.ID)
		if c.TaxID != "" {
			desc += ", CUIT " + c.TaxID
		}
		if c.Phone != "" {
			desc += ", tel " + c.Phone
		}
		lines = append(lines, desc)
		data = append(data, map[string]any{"id": c.ID, "name": c.Name, "tax_id": c.TaxID, "phone": c.Phone})
	}
	return domain.Success(
		fmt.Sprintf("Clientes (%d):\n%s", len(clients), strings.Join(lines, "\n")),
		map[string]any{"clients": data},
	), nil
}

func lookupClientArg(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.Client, *domain.ToolOutcome) {
	if id, ok := ArgsInt64(args, "client_id"); ok && id > 0 {
		c, err := ts.GetClient(ctx, id)
		if err != nil {
			return nil, domain.Errorf("error buscando el cliente id %d: %v", id, err)
		}
		if c == nil {
			return nil, domain.Errorf("no existe un cliente con id %d.", id)
		}
		return c, nil
	}
	name := strings.TrimSpace(ArgsString(args, "name"))
	if name == "" {
		return nil, domain.MissingData("Falta el nombre o id del cliente.")
	}
	matches, err := ts.FindClientByName(ctx, name)
	if err != nil {
		return nil, domain.Errorf("error buscando el cliente %q: %v", name, err)
	}
	switch len(matches) {
	case 0:
		return nil, domain.Errorf("no encontré ningún cliente llamado %q.", name)
	case 1:
		return &matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, fmt.Sprintf("%s (id %d)", m.Name, m.ID))
	}
	return nil, domain.Multiple(
		fmt.Sprintf("Hay varios clientes que coinciden con %q: %s. Indicá el id.", name, strings.Join(names, ", ")),
		map[string]any{"candidates": names},
	)
}
