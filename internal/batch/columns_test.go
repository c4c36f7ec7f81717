package batch

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/dairy-footprint/internal/emissions"
)

func TestColumnsContract(t *testing.T) {
	names := ColumnNames()
	require.Len(t, names, 55)
	assert.Equal(t, []string{"farm_id", "milk_litres", "cows_milking"}, names[:3])
	assert.Equal(t, "area_other_ha", names[len(names)-1])

	seen := map[string]bool{}
	var required []string
	for _, c := range Columns {
		assert.False(t, seen[c.Name], "duplicate column %s", c.Name)
		seen[c.Name] = true
		assert.NotEmpty(t, c.Example, c.Name)
		if c.Required {
			required = append(required, c.Name)
		}
	}
	assert.Equal(t, []string{"farm_id", "milk_litres", "cows_milking"}, required)
}

func TestParseRow(t *testing.T) {
	rec := ParseRow(map[string]string{
		"farm_id":        "FARM-9",
		"Milk Litres":    "750,000",
		"cows_milking":   " 120 ",
		"heifers":        "",
		"region":         "western_europe",
		"manure_system":  "solid_storage",
		"avg_temp_c":     "-2.5",
		"area_total_ha":  "150",
		"unknown_column": "ignored",
	})

	require.NoError(t, rec.DecodeErr)
	assert.Equal(t, "FARM-9", rec.FarmID)
	assert.Equal(t, 750000.0, rec.MilkLitres)
	assert.Equal(t, 120.0, rec.CowsMilking)
	assert.Nil(t, rec.Heifers)
	assert.Equal(t, "western_europe", rec.Region)
	assert.Equal(t, "solid_storage", rec.ManureSystem)
	require.NotNil(t, rec.AvgTempC)
	assert.Equal(t, -2.5, *rec.AvgTempC)
	require.NotNil(t, rec.AreaTotalHa)
	assert.Equal(t, 150.0, *rec.AreaTotalHa)
}

func TestParseRowErrors(t *testing.T) {
	rec := ParseRow(map[string]string{"farm_id": "F", "milk_litres": "1000", "diesel_l": "n/a"})
	require.Error(t, rec.DecodeErr)
	assert.Contains(t, rec.DecodeErr.Error(), "diesel_l")
	assert.Contains(t, rec.DecodeErr.Error(), "missing required column cows_milking")

	var ve *emissions.ValidationError
	require.True(t, errors.As(rec.DecodeErr, &ve))
	assert.Equal(t, "diesel_l", ve.Field)

	rec = ParseRow(map[string]string{"farm_id": "F", "milk_litres": "1000"})
	require.True(t, errors.As(rec.DecodeErr, &ve))
	assert.Equal(t, "cows_milking", ve.Field)

	// farm_id may be blank; the runner names the row instead
	rec = ParseRow(map[string]string{"milk_litres": "1000", "cows_milking": "10"})
	assert.NoError(t, rec.DecodeErr)
	assert.Empty(t, rec.FarmID)
}

func TestIsColumn(t *testing.T) {
	assert.True(t, IsColumn("milk_litres"))
	assert.True(t, IsColumn(" Milk Litres "))
	assert.False(t, IsColumn("milk"))
}

func TestRecordDetails(t *testing.T) {
	rec := FarmRecord{CowsMilking: 10}
	assert.Empty(t, rec.details())

	rec.DMIHeifersKgDay = ptr(8)
	d := rec.details()
	assert.Len(t, d, 1)

	rec.YmCowsPct = ptr(6)
	assert.Len(t, rec.details(), 2)

	assert.Equal(t, "IE", FarmRecord{Region: "", Country: "IE"}.factorRegion("global"))
	assert.Equal(t, "global", FarmRecord{}.factorRegion("global"))
	assert.Equal(t, "IE", FarmRecord{Region: "western_europe", Country: "IE"}.gridCountry("global"))
}
