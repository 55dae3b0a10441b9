// Package fixture builds a small synthetic firmware image and the variant
// describing it, for tests across packages.
package fixture

import (
	"github.com/tosih/map-rescaler/pkg/codec"
	"github.com/tosih/map-rescaler/pkg/models"
)

// VariantName is the name of the synthetic variant.
const VariantName = "TEST_3x4"

// ImageSize is the length of the synthetic image.
const ImageSize = 256

var (
	TorqueAxis  = models.Axis{10, 20, 40}
	RPMAxis     = models.Axis{1000, 2000, 3000, 4000}
	AirflowAxis = models.Axis{5, 12.5, 18}

	Airflow = [][]float64{
		{2, 4, 6, 8},
		{5, 10, 15, 20},
		{12, 16, 20, 24},
	}
	ReferenceTorque = [][]float64{
		{10, 11, 12, 13},
		{20, 21, 22, 23},
		{40, 41, 42, 43},
	}
)

// Variant returns a 3x4 airflow/torque variant. The airflow map is stored
// transposed and the reference torque map row-major.
func Variant() models.Variant {
	return models.Variant{
		Name:        VariantName,
		Description: "synthetic 3x4 layout",
		Primary:     models.AirflowMap,
		Secondary:   models.ReferenceTorqueMap,
		Tables: map[string]models.TableDefinition{
			models.AirflowMap: {
				Name:     models.AirflowMap,
				Offset:   0x10,
				Shape:    models.Shape{Rows: 3, Cols: 4},
				BitWidth: 16,
				Scaling:  models.Linear(0.5),
				Layout:   models.Transposed,
				RowAxis:  models.AirflowTorqueAxis,
				ColAxis:  models.AirflowRPMAxis,
				Unit:     "mg/stk",
			},
			models.AirflowRPMAxis: {
				Name:     models.AirflowRPMAxis,
				Offset:   0x30,
				Shape:    models.AxisShape(4),
				BitWidth: 16,
				Scaling:  models.Identity(),
				Unit:     "rpm",
			},
			models.AirflowTorqueAxis: {
				Name:     models.AirflowTorqueAxis,
				Offset:   0x40,
				Shape:    models.AxisShape(3),
				BitWidth: 16,
				Scaling:  models.Linear(0.03125),
				Unit:     "Nm",
			},
			models.ReferenceTorqueMap: {
				Name:     models.ReferenceTorqueMap,
				Offset:   0x50,
				Shape:    models.Shape{Rows: 3, Cols: 4},
				BitWidth: 16,
				Scaling:  models.Linear(0.03125),
				Layout:   models.RowMajor,
				RowAxis:  models.ReferenceTorqueAirflowAxis,
				ColAxis:  models.ReferenceTorqueRPMAxis,
				Unit:     "Nm",
			},
			models.ReferenceTorqueRPMAxis: {
				Name:     models.ReferenceTorqueRPMAxis,
				Offset:   0x70,
				Shape:    models.AxisShape(4),
				BitWidth: 16,
				Scaling:  models.Identity(),
				Unit:     "rpm",
			},
			models.ReferenceTorqueAirflowAxis: {
				Name:     models.ReferenceTorqueAirflowAxis,
				Offset:   0x80,
				Shape:    models.AxisShape(3),
				BitWidth: 8,
				Scaling:  models.Linear(0.5),
				Unit:     "mg/stk",
			},
		},
	}
}

// Catalog returns a catalog holding only Variant.
func Catalog() *models.Catalog {
	c, err := models.NewCatalog(Variant())
	if err != nil {
		panic(err)
	}
	return c
}

// Image returns a synthetic image holding the package-level tables and
// axes. Bytes outside the tables carry a recognisable filler pattern.
func Image() []byte {
	img := make([]byte, ImageSize)
	for i := range img {
		img[i] = 0xEE
	}

	v := Variant()
	must(codec.EncodeTable(img, v.Tables[models.AirflowMap], models.Transposed, Airflow))
	must(codec.EncodeAxis(img, v.Tables[models.AirflowRPMAxis], RPMAxis))
	must(codec.EncodeAxis(img, v.Tables[models.AirflowTorqueAxis], TorqueAxis))
	must(codec.EncodeTable(img, v.Tables[models.ReferenceTorqueMap], models.RowMajor, ReferenceTorque))
	must(codec.EncodeAxis(img, v.Tables[models.ReferenceTorqueRPMAxis], RPMAxis))
	must(codec.EncodeAxis(img, v.Tables[models.ReferenceTorqueAirflowAxis], AirflowAxis))
	return img
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
