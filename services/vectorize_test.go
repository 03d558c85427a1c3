package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"car-scout/models"
)

func TestVectorizeListing(t *testing.T) {
	l := &models.Listing{
		Make:         "VW",
		Model:        "Golf 2.0 TDI",
		Year:         2015,
		Trim:         "GT",
		Transmission: "Auto",
		Drivetrain:   "4x4",
	}

	v := VectorizeListing(l)
	assert.Equal(t, models.FeatureVector{
		Make:         "volkswagen",
		Model:        "golf tdi",
		Year:         2015,
		Trim:         "gt",
		Engine:       "20",
		Transmission: "automatic",
		Drive:        "awd",
	}, v)
}

func TestVectorizeReferenceHoistsDisplacement(t *testing.T) {
	r := &models.ReferenceRecord{Make: "toyota", Model: "yaris 1.3", Year: 2012}
	v := VectorizeReference(r)

	assert.Equal(t, "toyota", v.Make)
	assert.Equal(t, "yaris", v.Model)
	assert.Equal(t, "13", v.Engine)
}

func TestVectorizeKeepsExplicitEngine(t *testing.T) {
	v := VectorizeListing(&models.Listing{Make: "Ford", Model: "Focus 1.6", Engine: "1.6 Ti-VCT"})
	assert.Equal(t, "focus", v.Model)
	assert.Equal(t, "16 ti vct", v.Engine)
}

func TestVectorizeMissingFields(t *testing.T) {
	v := VectorizeListing(&models.Listing{Make: "Honda"})
	assert.Equal(t, models.FeatureVector{Make: "honda"}, v, "missing text is empty and missing year is 0")

	v = VectorizeListing(&models.Listing{Make: "Honda", Year: 12})
	assert.Zero(t, v.Year, "implausible years are unknown, never guessed")

	assert.Equal(t, models.FeatureVector{}, VectorizeListing(nil))
	assert.Equal(t, models.FeatureVector{}, VectorizeReference(nil))
}

func TestVectorizeDeterministic(t *testing.T) {
	l := &models.Listing{Make: "Mercedes-Benz", Model: "C220 d", Year: 2018, Transmission: "Tiptronic"}
	assert.Equal(t, VectorizeListing(l), VectorizeListing(l))
	assert.Equal(t, "mercedes benz", VectorizeListing(l).Make)
	assert.Equal(t, "mercedes benz", VectorizeListing(&models.Listing{Make: "Merc"}).Make)
}
