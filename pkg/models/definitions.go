package models

// Table names shared by the airflow/torque variants.
const (
	AirflowMap                 = "airflow_map"
	AirflowRPMAxis             = "airflow_rpm_axis"
	AirflowTorqueAxis          = "airflow_torque_axis"
	ReferenceTorqueMap         = "reference_torque_map"
	ReferenceTorqueRPMAxis     = "reference_torque_rpm_axis"
	ReferenceTorqueAirflowAxis = "reference_torque_airflow_axis"
)

// airflowFactor converts raw airflow counts to mg/stroke.
const airflowFactor = 0.042389562829

// BuiltinVariants are the calibration layouts known without a catalog file.
var BuiltinVariants = []Variant{
	{
		Name:        "CNPNJM___T3A",
		Description: "Airflow and reference torque maps, 12 torque/airflow rows by 16 RPM columns",
		Primary:     AirflowMap,
		Secondary:   ReferenceTorqueMap,
		Tables: map[string]TableDefinition{
			AirflowMap: {
				Name:        AirflowMap,
				Offset:      0x255D1C,
				Shape:       Shape{Rows: 12, Cols: 16},
				BitWidth:    16,
				Scaling:     Linear(airflowFactor),
				Layout:      Transposed,
				RowAxis:     AirflowTorqueAxis,
				ColAxis:     AirflowRPMAxis,
				Unit:        "mg/stk",
				Description: "Airflow requested per torque and RPM",
			},
			AirflowRPMAxis: {
				Name:     AirflowRPMAxis,
				Offset:   0x25417A,
				Shape:    AxisShape(16),
				BitWidth: 16,
				Scaling:  Identity(),
				Unit:     "rpm",
			},
			AirflowTorqueAxis: {
				Name:     AirflowTorqueAxis,
				Offset:   0x25424A,
				Shape:    AxisShape(12),
				BitWidth: 16,
				Scaling:  Linear(0.03125),
				Unit:     "Nm",
			},
			ReferenceTorqueMap: {
				Name:        ReferenceTorqueMap,
				Offset:      0x257B04,
				Shape:       Shape{Rows: 12, Cols: 16},
				BitWidth:    16,
				Scaling:     Linear(0.03125),
				Layout:      Transposed,
				RowAxis:     ReferenceTorqueAirflowAxis,
				ColAxis:     ReferenceTorqueRPMAxis,
				Unit:        "Nm",
				Description: "Reference torque per airflow and RPM",
			},
			ReferenceTorqueRPMAxis: {
				Name:     ReferenceTorqueRPMAxis,
				Offset:   0x257AE2,
				Shape:    AxisShape(16),
				BitWidth: 16,
				Scaling:  Identity(),
				Unit:     "rpm",
			},
			ReferenceTorqueAirflowAxis: {
				Name:     ReferenceTorqueAirflowAxis,
				Offset:   0x25403E,
				Shape:    AxisShape(12),
				BitWidth: 16,
				Scaling:  Linear(airflowFactor),
				Unit:     "mg/stk",
			},
		},
	},
}

// DefaultCatalog returns a catalog over BuiltinVariants.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(BuiltinVariants...)
	if err != nil {
		panic("models: invalid builtin catalog: " + err.Error())
	}
	return c
}
