package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

// clockNow lets tests pin the date the date parser anchors on.
func clockNow(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}

// CreateWorkOrder schedules a work order. Future dates are legitimate:
// field work is planned ahead.
type CreateWorkOrder struct {
	Now func() time.Time
}

func (CreateWorkOrder) Name() string { return "create_work_order" }
func (CreateWorkOrder) Description() string {
	return "Crea un trabajo agrícola: tipo (siembra, cosecha, etc.), campo, cultivo y fecha de inicio. Las fechas futuras son válidas."
}
func (CreateWorkOrder) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"work_type":  {Type: "string", Description: "Tipo de trabajo (siembra, cosecha, pulverización, fertilización, labranza, arado, rastra)"},
		"field_name": {Type: "string", Description: "Nombre del campo donde se hace el trabajo"},
		"crop":       {Type: "string", Description: "Cultivo (soja, maíz, trigo, etc.)"},
		"start_date": {Type: "string", Description: "Fecha de inicio (15/03/2024, \"15 de marzo\", hoy, mañana)"},
		"end_date":   {Type: "string", Description: "Fecha de fin, si se conoce"},
		"status":     {Type: "string", Description: "Estado del trabajo", Enum: statusEnum},
		"client":     {Type: "string", Description: "Cliente para el que se hace el trabajo"},
		"notes":      {Type: "string", Description: "Observaciones"},
	}, []string{"work_type", "field_name"})
}

func (t CreateWorkOrder) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	now := clockNow(t.Now)

	wt, out := resolveWorkType(ctx, ts, ArgsString(args, "work_type"))
	if out != nil {
		return out, nil
	}
	field, out := resolveField(ctx, ts, strings.TrimSpace(ArgsString(args, "field_name")))
	if out != nil {
		return out, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start, out := parseDateArg(args, "start_date", today, now)
	if out != nil {
		return out, nil
	}

	w := domain.WorkOrder{
		WorkTypeID: wt.ID,
		FieldID:    field.ID,
		Crop:       domain.CropUnspecified,
		StartDate:  start,
		Status:     domain.StatusPending,
		Client:     ArgsString(args, "client"),
		Notes:      ArgsString(args, "notes"),
	}
	if crop := strings.TrimSpace(ArgsString(args, "crop")); crop != "" {
		w.Crop = crop
	}
	if status := ArgsString(args, "status"); status != "" {
		if !validStatus(status) {
			return domain.Errorf("estado inválido %q. Los estados son: %s.", status, strings.Join(statusEnum, ", ")), nil
		}
		w.Status = status
	}
	if raw := ArgsString(args, "end_date"); raw != "" {
		end, out := parseDateArg(args, "end_date", time.Time{}, now)
		if out != nil {
			return out, nil
		}
		if end.Before(start) {
			return domain.Errorf("la fecha de fin (%s) es anterior a la de inicio (%s).",
				end.Format("2006-01-02"), start.Format("2006-01-02")), nil
		}
		w.EndDate = &end
	}

	id, err := ts.CreateWorkOrder(ctx, w)
	if err != nil {
		return domain.Errorf("no pude crear el trabajo: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Trabajo de %s creado en %q (id %d, cultivo %s, inicio %s).",
			wt.Name, field.Name, id, w.Crop, start.Format("2006-01-02")),
		map[string]any{
			"id": id, "work_type": wt.Name, "field": field.Name,
			"crop": w.Crop, "start_date": start.Format("2006-01-02"), "status": w.Status,
		},
	).Written(), nil
}

// UpdateWorkOrder modifies an existing order found by id or by narrowing
// attributes. "Completar" a work order lands here, not in create.
type UpdateWorkOrder struct {
	Now func() time.Time
}

func (UpdateWorkOrder) Name() string { return "update_work_order" }
func (UpdateWorkOrder) Description() string {
	return "Modifica un trabajo existente (estado, fechas, cultivo, observaciones). Identificalo por id o por campo y tipo. Marcar como completado un trabajo es una actualización, no una creación."
}
func (UpdateWorkOrder) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"work_order_id": {Type: "integer", Description: "Id del trabajo"},
		"field_name":    {Type: "string", Description: "Campo del trabajo (si no hay id)"},
		"work_type":     {Type: "string", Description: "Tipo de trabajo (si no hay id)"},
		"crop":          {Type: "string", Description: "Cultivo, para acotar la búsqueda o como nuevo valor"},
		"start_date":    {Type: "string", Description: "Fecha de inicio, para acotar la búsqueda"},
		"new_status":    {Type: "string", Description: "Nuevo estado", Enum: statusEnum},
		"new_crop":      {Type: "string", Description: "Nuevo cultivo"},
		"new_start":     {Type: "string", Description: "Nueva fecha de inicio"},
		"new_end":       {Type: "string", Description: "Nueva fecha de fin"},
		"notes":         {Type: "string", Description: "Nuevas observaciones"},
	}, nil)
}

func (t UpdateWorkOrder) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	now := clockNow(t.Now)
	w, out := findWorkOrderTarget(ctx, ts, args, now)
	if out != nil {
		return out, nil
	}

	changed := false
	if status := ArgsString(args, "new_status"); status != "" {
		if !validStatus(status) {
			return domain.Errorf("estado inválido %q. Los estados son: %s.", status, strings.Join(statusEnum, ", ")), nil
		}
		w.Status = status
		changed = true
	}
	if crop := strings.TrimSpace(ArgsString(args, "new_crop")); crop != "" {
		w.Crop = crop
		changed = true
	}
	if raw := ArgsString(args, "new_start"); raw != "" {
		d, out := parseDateArg(args, "new_start", time.Time{}, now)
		if out != nil {
			return out, nil
		}
		w.StartDate = d
		changed = true
	}
	if raw := ArgsString(args, "new_end"); raw != "" {
		d, out := parseDateArg(args, "new_end", time.Time{}, now)
		if out != nil {
			return out, nil
		}
		if d.Before(w.StartDate) {
			return domain.Errorf("la fecha de fin (%s) es anterior a la de inicio (%s).",
				d.Format("2006-01-02"), w.StartDate.Format("2006-01-02")), nil
		}
		w.EndDate = &d
		changed = true
	}
	if notes := ArgsString(args, "notes"); notes != "" {
		w.Notes = notes
		changed = true
	}
	if !changed {
		return domain.MissingData("¿Qué querés cambiar del trabajo? (estado, cultivo, fechas u observaciones)"), nil
	}

	if err := ts.UpdateWorkOrder(ctx, *w); err != nil {
		return domain.Errorf("no pude actualizar el trabajo: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Trabajo id %d actualizado: %s en %s, estado %s.", w.ID, w.WorkType, w.FieldName, w.Status),
		map[string]any{"id": w.ID, "status": w.Status, "crop": w.Crop},
	).Written(), nil
}

type DeleteWorkOrder struct {
	Now func() time.Time
}

func (DeleteWorkOrder) Name() string { return "delete_work_order" }
func (DeleteWorkOrder) Description() string {
	return "Elimina un trabajo, identificado por id o por campo y tipo."
}
func (DeleteWorkOrder) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"work_order_id": {Type: "integer", Description: "Id del trabajo"},
		"field_name":    {Type: "string", Description: "Campo del trabajo (si no hay id)"},
		"work_type":     {Type: "string", Description: "Tipo de trabajo (si no hay id)"},
		"crop":          {Type: "string", Description: "Cultivo, para acotar la búsqueda"},
		"start_date":    {Type: "string", Description: "Fecha de inicio, para acotar la búsqueda"},
	}, nil)
}

func (t DeleteWorkOrder) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	w, out := findWorkOrderTarget(ctx, ts, args, clockNow(t.Now))
	if out != nil {
		return out, nil
	}
	if err := ts.DeleteWorkOrder(ctx, w.ID); err != nil {
		return domain.Errorf("no pude eliminar el trabajo: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Trabajo id %d eliminado (%s en %s).", w.ID, w.WorkType, w.FieldName),
		map[string]any{"id": w.ID},
	).Written(), nil
}

type GetWorkOrders struct {
	Now func() time.Time
}

func (GetWorkOrders) Name() string { return "get_work_orders" }
func (GetWorkOrders) Description() string {
	return "Lista trabajos, opcionalmente filtrados por campo, tipo, estado o fecha."
}
func (GetWorkOrders) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"field_name": {Type: "string", Description: "Filtro por campo"},
		"work_type":  {Type: "string", Description: "Filtro por tipo de trabajo"},
		"status":     {Type: "string", Description: "Filtro por estado", Enum: statusEnum},
		"crop":       {Type: "string", Description: "Filtro por cultivo"},
		"start_date": {Type: "string", Description: "Filtro por fecha de inicio"},
	}, nil)
}

func (t GetWorkOrders) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	now := clockNow(t.Now)
	var filter store.WorkFilter
	if name := ArgsString(args, "field_name"); name != "" {
		f, out := resolveField(ctx, ts, name)
		if out != nil {
			return out, nil
		}
		filter.FieldID = f.ID
	}
	if name := ArgsString(args, "work_type"); name != "" {
		wt, out := resolveWorkType(ctx, ts, name)
		if out != nil {
			return out, nil
		}
		filter.WorkTypeID = wt.ID
	}
	if status := ArgsString(args, "status"); status != "" {
		if !validStatus(status) {
			return domain.Errorf("estado inválido %q.", status), nil
		}
		filter.Status = status
	}
	if crop := ArgsString(args, "crop"); crop != "" {
		filter.Crop = crop
	}
	if raw := ArgsString(args, "start_date"); raw != "" {
		d, out := parseDateArg(args, "start_date", time.Time{}, now)
		if out != nil {
			return out, nil
		}
		filter.StartDate = &d
	}

	works, err := ts.FindWorkOrders(ctx, filter, 50)
	if err != nil {
		return domain.Errorf("no pude listar los trabajos: %v", err), nil
	}
	if len(works) == 0 {
		return domain.Success("No hay trabajos con esos datos.", nil), nil
	}
	lines := make([]string, 0, len(works))
	data := make([]map[string]any, 0, len(works))
	for _, w := range works {
		lines = append(lines, describeWorkOrder(w))
		data = append(data, map[string]any{
			"id": w.ID, "work_type": w.WorkType, "field": w.FieldName,
			"crop": w.Crop, "start_date": w.StartDate.Format("2006-01-02"), "status": w.Status,
		})
	}
	return domain.Success(
		fmt.Sprintf("Trabajos (%d):\n%s", len(works), strings.Join(lines, "\n")),
		map[string]any{"work_orders": data},
	), nil
}

// AssignPersonnelToWork logs hectares worked by a person on an order. The
// sum of logged hectares can never exceed the field's surface.
type AssignPersonnelToWork struct {
	Now func() time.Time
}

func (AssignPersonnelToWork) Name() string { return "assign_personnel_to_work" }
func (AssignPersonnelToWork) Description() string {
	return "Asigna una persona a un trabajo con las hectáreas (y opcionalmente horas) que hizo."
}
func (AssignPersonnelToWork) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"work_order_id":  {Type: "integer", Description: "Id del trabajo"},
		"field_name":     {Type: "string", Description: "Campo del trabajo (si no hay id)"},
		"work_type":      {Type: "string", Description: "Tipo de trabajo (si no hay id)"},
		"personnel_id":   {Type: "integer", Description: "Id de la persona"},
		"personnel_name": {Type: "string", Description: "Nombre de la persona (si no hay id)"},
		"hectares":       {Type: "number", Description: "Hectáreas trabajadas"},
		"hours":          {Type: "number", Description: "Horas trabajadas"},
	}, []string{"hectares"})
}

func (t AssignPersonnelToWork) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	w, out := findWorkOrderTarget(ctx, ts, args, clockNow(t.Now))
	if out != nil {
		return out, nil
	}
	p, out := resolvePersonnel(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	hectares, ok := ArgsFloat(args, "hectares")
	if !ok || hectares <= 0 {
		return domain.MissingData("¿Cuántas hectáreas trabajó?"), nil
	}
	hours, _ := ArgsFloat(args, "hours")

	field, err := ts.GetField(ctx, w.FieldID)
	if err != nil || field == nil {
		return domain.Errorf("error buscando el campo del trabajo: %v", err), nil
	}
	assigned, err := ts.AssignedHectares(ctx, w.ID)
	if err != nil {
		return domain.Errorf("error sumando hectáreas asignadas: %v", err), nil
	}
	if field.Hectares > 0 && assigned+hectares > field.Hectares {
		return domain.Errorf(
			"no se puede: el campo %q tiene %.0f ha y ya hay %.0f ha asignadas en este trabajo. Como máximo podés asignar %.0f ha más.",
			field.Name, field.Hectares, assigned, field.Hectares-assigned), nil
	}

	if err := ts.AssignPersonnel(ctx, domain.WorkAssignment{
		WorkOrderID: w.ID, PersonnelID: p.ID, Hectares: hectares, Hours: hours,
	}); err != nil {
		return domain.Errorf("no pude asignar a %s al trabajo: %v", p.Name, err), nil
	}
	return domain.Success(
		fmt.Sprintf("%s asignado al trabajo id %d con %.0f ha.", p.Name, w.ID, hectares),
		map[string]any{"work_order_id": w.ID, "personnel_id": p.ID, "hectares": hectares},
	).Written(), nil
}

type RemovePersonnelFromWork struct {
	Now func() time.Time
}

func (RemovePersonnelFromWork) Name() string { return "remove_personnel_from_work" }
func (RemovePersonnelFromWork) Description() string {
	return "Quita a una persona de un trabajo."
}
func (RemovePersonnelFromWork) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"work_order_id":  {Type: "integer", Description: "Id del trabajo"},
		"field_name":     {Type: "string", Description: "Campo del trabajo (si no hay id)"},
		"work_type":      {Type: "string", Description: "Tipo de trabajo (si no hay id)"},
		"personnel_id":   {Type: "integer", Description: "Id de la persona"},
		"personnel_name": {Type: "string", Description: "Nombre de la persona (si no hay id)"},
	}, nil)
}

func (t RemovePersonnelFromWork) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	w, out := findWorkOrderTarget(ctx, ts, args, clockNow(t.Now))
	if out != nil {
		return out, nil
	}
	p, out := resolvePersonnel(ctx, ts, args)
	if out != nil {
		return out, nil
	}
	if err := ts.RemoveAssignment(ctx, w.ID, p.ID); err != nil {
		return domain.Errorf("%s no estaba asignado al trabajo id %d.", p.Name, w.ID), nil
	}
	return domain.Success(
		fmt.Sprintf("%s quitado del trabajo id %d.", p.Name, w.ID),
		map[string]any{"work_order_id": w.ID, "personnel_id": p.ID},
	).Written(), nil
}

type GetPersonnelForWork struct {
	Now func() time.Time
}

func (GetPersonnelForWork) Name() string { return "get_personnel_for_work" }
func (GetPersonnelForWork) Description() string {
	return "Lista el personal asignado a un trabajo con sus hectáreas."
}
func (GetPersonnelForWork) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"work_order_id": {Type: "integer", Description: "Id del trabajo"},
		"field_name":    {Type: "string", Description: "Campo del trabajo (si no hay id)"},
		"work_type":     {Type: "string", Description: "Tipo de trabajo (si no hay id)"},
	}, nil)
}

func (t GetPersonnelForWork) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	w, out := findWorkOrderTarget(ctx, ts, args, clockNow(t.Now))
	if out != nil {
		return out, nil
	}
	assignments, err := ts.ListAssignments(ctx, w.ID)
	if err != nil {
		return domain.Errorf("no pude listar las asignaciones: %v", err), nil
	}
	if len(assignments) == 0 {
		return domain.Success(fmt.Sprintf("El trabajo id %d no tiene personal asignado.", w.ID), nil), nil
	}
	lines := make([]string, 0, len(assignments))
	data := make([]map[string]any, 0, len(assignments))
	var total float64
	for _, a := range assignments {
		lines = append(lines, fmt.Sprintf("- %s: %.0f ha", a.PersonnelName, a.Hectares))
		data = append(data, map[string]any{"personnel_id": a.PersonnelID, "name": a.PersonnelName, "hectares": a.Hectares, "hours": a.Hours})
		total += a.Hectares
	}
	return domain.Success(
		fmt.Sprintf("Personal del trabajo id %d (%.0f ha asignadas):\n%s", w.ID, total, strings.Join(lines, "\n")),
		map[string]any{"assignments": data, "total_hectares": total},
	), nil
}
