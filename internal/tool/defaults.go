package tool

import "time"

// RegisterAll wires the full tool set into a registry. now is the clock the
// date parsers anchor on; nil means the wall clock.
func RegisterAll(r *Registry, now func() time.Time) {
	r.Register(CreateField{})
	r.Register(UpdateField{})
	r.Register(DeleteField{})
	r.Register(GetFields{})

	r.Register(CreateClient{})
	r.Register(UpdateClient{})
	r.Register(DeleteClient{})
	r.Register(GetClients{})

	r.Register(CreatePersonnel{})
	r.Register(UpdatePersonnel{})
	r.Register(DeletePersonnel{})
	r.Register(GetPersonnel{})

	r.Register(CreateWorkOrder{Now: now})
	r.Register(UpdateWorkOrder{Now: now})
	r.Register(DeleteWorkOrder{Now: now})
	r.Register(GetWorkOrders{Now: now})

	r.Register(AssignPersonnelToWork{Now: now})
	r.Register(RemovePersonnelFromWork{Now: now})
	r.Register(GetPersonnelForWork{Now: now})

	r.Register(CreateCost{Now: now})
	r.Register(UpdateCost{Now: now})
	r.Register(DeleteCost{})
	r.Register(GetCosts{})
}
