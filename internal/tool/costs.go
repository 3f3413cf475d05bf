package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrobot/internal/domain"
	"agrobot/internal/store"
)

// CreateCost records an expense. The payee falls back to the description
// so a quick "gasté 50000 en gasoil" still produces a usable row.
type CreateCost struct {
	Now func() time.Time
}

func (CreateCost) Name() string { return "create_cost" }
func (CreateCost) Description() string {
	return "Registra un gasto con monto, fecha y destinatario o descripción."
}
func (CreateCost) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"amount":         {Type: "number", Description: "Monto del gasto en pesos"},
		"date":           {Type: "string", Description: "Fecha del gasto (por defecto hoy)"},
		"payee":          {Type: "string", Description: "A quién se le pagó"},
		"description":    {Type: "string", Description: "Qué se compró o pagó"},
		"category":       {Type: "string", Description: "Categoría (combustible, semillas, repuestos, etc.)"},
		"payment_method": {Type: "string", Description: "Forma de pago"},
		"paid":           {Type: "boolean", Description: "true si ya está pagado"},
	}, []string{"amount"})
}

func (t CreateCost) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	now := clockNow(t.Now)

	amount, out := parseAmountArg(args, "amount")
	if out != nil {
		return out, nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	date, out := parseDateArg(args, "date", today, now)
	if out != nil {
		return out, nil
	}

	payee := strings.TrimSpace(ArgsString(args, "payee"))
	description := strings.TrimSpace(ArgsString(args, "description"))
	if payee == "" {
		payee = description
	}
	if payee == "" {
		payee = "Sin especificar"
	}

	c := domain.Cost{
		Amount:        amount,
		Date:          date,
		Payee:         payee,
		Description:   description,
		Category:      ArgsString(args, "category"),
		PaymentMethod: ArgsString(args, "payment_method"),
		Paid:          ArgsBool(args, "paid"),
	}
	id, err := ts.CreateCost(ctx, c)
	if err != nil {
		return domain.Errorf("no pude registrar el gasto: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Gasto de $%.2f registrado (id %d, %s, %s).", amount, id, payee, date.Format("2006-01-02")),
		map[string]any{"id": id, "amount": amount, "payee": payee, "date": date.Format("2006-01-02")},
	).Written(), nil
}

type UpdateCost struct {
	Now func() time.Time
}

func (UpdateCost) Name() string { return "update_cost" }
func (UpdateCost) Description() string {
	return "Modifica un gasto existente, identificado por id. Solo cambia los datos provistos."
}
func (UpdateCost) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"cost_id":        {Type: "integer", Description: "Id del gasto"},
		"amount":         {Type: "number", Description: "Nuevo monto"},
		"date":           {Type: "string", Description: "Nueva fecha"},
		"payee":          {Type: "string", Description: "Nuevo destinatario"},
		"description":    {Type: "string", Description: "Nueva descripción"},
		"category":       {Type: "string", Description: "Nueva categoría"},
		"payment_method": {Type: "string", Description: "Nueva forma de pago"},
		"paid":           {Type: "boolean", Description: "true si ya está pagado"},
	}, []string{"cost_id"})
}

func (t UpdateCost) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	now := clockNow(t.Now)
	id, ok := ArgsInt64(args, "cost_id")
	if !ok || id <= 0 {
		return domain.MissingData("Falta el id del gasto a modificar. Pedime la lista de gastos si no lo sabés."), nil
	}
	c, err := ts.GetCost(ctx, id)
	if err != nil {
		return domain.Errorf("error buscando el gasto id %d: %v", id, err), nil
	}
	if c == nil {
		return domain.Errorf("no existe un gasto con id %d.", id), nil
	}

	if _, present := args["amount"]; present {
		amount, out := parseAmountArg(args, "amount")
		if out != nil {
			return out, nil
		}
		c.Amount = amount
	}
	if raw := ArgsString(args, "date"); raw != "" {
		d, out := parseDateArg(args, "date", time.Time{}, now)
		if out != nil {
			return out, nil
		}
		c.Date = d
	}
	for key, dst := range map[string]*string{
		"payee": &c.Payee, "description": &c.Description,
		"category": &c.Category, "payment_method": &c.PaymentMethod,
	} {
		if v := ArgsString(args, key); v != "" {
			*dst = v
		}
	}
	if _, present := args["paid"]; present {
		c.Paid = ArgsBool(args, "paid")
	}

	if err := ts.UpdateCost(ctx, *c); err != nil {
		return domain.Errorf("no pude actualizar el gasto: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Gasto id %d actualizado ($%.2f, %s).", c.ID, c.Amount, c.Payee),
		map[string]any{"id": c.ID, "amount": c.Amount, "payee": c.Payee},
	).Written(), nil
}

type DeleteCost struct{}

func (DeleteCost) Name() string { return "delete_cost" }
func (DeleteCost) Description() string {
	return "Elimina un gasto, identificado por id."
}
func (DeleteCost) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"cost_id": {Type: "integer", Description: "Id del gasto"},
	}, []string{"cost_id"})
}

func (DeleteCost) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	id, ok := ArgsInt64(args, "cost_id")
	if !ok || id <= 0 {
		return domain.MissingData("Falta el id del gasto a eliminar."), nil
	}
	c, err := ts.GetCost(ctx, id)
	if err != nil {
		return domain.Errorf("error buscando el gasto id %d: %v", id, err), nil
	}
	if c == nil {
		return domain.Errorf("no existe un gasto con id %d.", id), nil
	}
	if err := ts.DeleteCost(ctx, id); err != nil {
		return domain.Errorf("no pude eliminar el gasto: %v", err), nil
	}
	return domain.Success(
		fmt.Sprintf("Gasto id %d eliminado ($%.2f, %s).", id, c.Amount, c.Payee),
		map[string]any{"id": id},
	).Written(), nil
}

type GetCosts struct{}

func (GetCosts) Name() string { return "get_costs" }
func (GetCosts) Description() string {
	return "Lista los gastos registrados, opcionalmente filtrados por destinatario."
}
func (GetCosts) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"payee": {Type: "string", Description: "Filtro por destinatario (parcial)"},
	}, nil)
}

func (GetCosts) Execute(ctx context.Context, ts *store.TenantStore, args map[string]any) (*domain.ToolOutcome, error) {
	var (
		costs []domain.Cost
		err   error
	)
	if payee := ArgsString(args, "payee"); payee != "" {
		costs, err = ts.FindCostsByPayee(ctx, payee, 0)
	} else {
		costs, err = ts.ListCosts(ctx, 0)
	}
	if err != nil {
		return domain.Errorf("no pude listar los gastos: %v", err), nil
	}
	if len(costs) == 0 {
		return domain.Success("No hay gastos registrados.", nil), nil
	}
	lines := make([]string, 0, len(costs))
	data := make([]map[string]any, 0, len(costs))
	var total float64
	for _, c := range costs {
		state := "pendiente"
		if c.Paid {
			state = "pagado"
		}
		lines = append(lines, fmt.Sprintf("- id %d: $%.2f a %s el %s (%s)",
			c.ID, c.Amount, c.Payee, c.Date.Format("2006-01-02"), state))
		data = append(data, map[string]any{
			"id": c.ID, "amount": c.Amount, "payee": c.Payee,
			"date": c.Date.Format("2006-01-02"), "paid": c.Paid,
		})
		total += c.Amount
	}
	return domain.Success(
		fmt.Sprintf("Gastos (%d, total $%.2f):\n%s", len(costs), total, strings.Join(lines, "\n")),
		map[string]any{"costs": data, "total": total},
	), nil
}
