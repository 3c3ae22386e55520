package jurisdiction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name                string
		state, county, city string
		wantKey, wantType   string
		wantDisplay         string
	}{
		{"city", "MT", "Gallatin", "Bozeman", "MT:Gallatin:Bozeman", TypeCity, "Bozeman, Gallatin County, MT"},
		{"county", "MT", "Missoula", "", "MT:Missoula:", TypeCounty, "Missoula County, MT (unincorporated)"},
		{"state", "CA", "", "", "CA::", TypeState, "CA (statewide)"},
		{"helena", "MT", "Lewis And Clark", "Helena", "MT:Lewis And Clark:Helena", TypeCity, "Helena, Lewis And Clark County, MT"},
		{"lowercase multiword", "mt", "lewis and clark", "helena", "MT:Lewis And Clark:Helena", TypeCity, "Helena, Lewis And Clark County, MT"},
		{"city without county", "CA", "", "Los Angeles", "CA::Los Angeles", TypeCity, "Los Angeles, CA"},
		{"empty", "", "", "", "::", TypeState, " (statewide)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := Resolve(tt.state, tt.county, tt.city)
			assert.Equal(t, tt.wantKey, j.Key)
			assert.Equal(t, tt.wantType, j.Type)
			assert.Equal(t, tt.wantDisplay, j.Display)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	a := Resolve("mt", "gallatin", "bozeman")
	b := Resolve(" MT ", " Gallatin ", " Bozeman ")
	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, "MT:Gallatin:Bozeman", a.Key)
	assert.Equal(t, a.Key, Resolve(a.State, a.County, a.City).Key)
}

func TestParseKey(t *testing.T) {
	j := ParseKey("MT:Missoula:")
	assert.Equal(t, "MT", j.State)
	assert.Equal(t, "Missoula", j.County)
	assert.Equal(t, TypeCounty, j.Type)

	j = ParseKey("CA::")
	assert.Equal(t, TypeState, j.Type)
	assert.Equal(t, "CA::", j.Key)

	j = ParseKey("NV")
	assert.Equal(t, "NV::", j.Key)
}

func TestCascadeKeys(t *testing.T) {
	assert.Equal(t,
		[]string{"MT:Missoula:Lolo", "MT:Missoula:", "MT::"},
		CascadeKeys("MT:Missoula:Lolo", "MT"))
	assert.Equal(t,
		[]string{"MT:Missoula:", "MT::"},
		CascadeKeys("MT:Missoula:", "MT"))
	assert.Equal(t, []string{"CA::"}, CascadeKeys("CA::", "ca"))
	assert.Equal(t, []string{"::"}, CascadeKeys("::", ""))
}

func TestStateAbbrev(t *testing.T) {
	assert.Equal(t, "MT", StateAbbrev("Montana"))
	assert.Equal(t, "NY", StateAbbrev("  new   york "))
	assert.Equal(t, "MT", StateAbbrev("mt"))
	assert.Equal(t, "ZZ", StateAbbrev("zz"))
	assert.Equal(t, "", StateAbbrev(""))
}
