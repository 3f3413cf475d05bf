package intent

// Intent names. query_records covers every read-only request; the write
// intents mirror the entity tools.
const (
	CreateWork      = "create_work"
	CreateCost      = "create_cost"
	CreateField     = "create_field"
	CreateClient    = "create_client"
	CreatePersonnel = "create_personnel"
	UpdateWork      = "update_work"
	DeleteRecord    = "delete_record"
	QueryRecords    = "query_records"
)

func defaultExamples() map[string][]string {
	return map[string][]string{
		CreateWork: {
			"crear un trabajo de siembra en el campo La Esperanza",
			"registrar cosecha de soja para el lunes",
			"anotá una pulverización en Lote Norte mañana",
			"agendar fertilización de maíz el 15 de marzo",
			"nuevo trabajo de labranza en el campo grande",
		},
		CreateCost: {
			"gasté 50000 pesos en gasoil",
			"registrar un costo de 10 mil en repuestos",
			"anotá un gasto de $25.000 de semillas",
			"pagué 2 millones al contratista",
			"cargar costo de fertilizante por 80000",
		},
		CreateField: {
			"crear campo La Esperanza de 120 hectareas",
			"agregar un lote nuevo de 80 hectáreas",
			"dar de alta el campo San José",
			"registrar un campo de 200 hectáreas llamado El Remanso",
		},
		CreateClient: {
			"crear cliente Estancia El Ombú",
			"agregar un cliente nuevo con cuit 30-12345678-9",
			"dar de alta al cliente Juan Pérez",
			"registrar cliente La Rural con teléfono 1155551111",
		},
		CreatePersonnel: {
			"agregar a Carlos al personal",
			"dar de alta un empleado con dni 30111222",
			"registrar personal nuevo Juan González",
			"sumar a Pedro al equipo de trabajo",
		},
		UpdateWork: {
			"marcar como completado el trabajo de siembra",
			"completar la cosecha de La Esperanza",
			"cambiar la fecha del trabajo de pulverización",
			"el trabajo de arado ya está terminado",
			"actualizar el estado del trabajo en Lote Sur",
		},
		DeleteRecord: {
			"borrar el costo de ayer",
			"eliminar el trabajo de siembra duplicado",
			"sacar al cliente La Rural",
			"eliminá el campo que cargué mal",
		},
		QueryRecords: {
			"qué trabajos hay pendientes",
			"mostrame los costos de este mes",
			"listar los campos",
			"cuánto gasté en marzo",
			"qué personal está asignado a la cosecha",
			"ver los clientes cargados",
		},
	}
}
