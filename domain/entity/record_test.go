package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordString(t *testing.T) {
	r := Record{
		"empty":  "",
		"zero":   float64(0),
		"id":     float64(42),
		"name":   "Acme",
		"falsey": false,
	}
	assert.Equal(t, "Acme", r.String("missing", "empty", "zero", "falsey", "name"))
	assert.Equal(t, "42", r.String("id"))
	assert.Equal(t, "", r.String("missing"))
}

func TestToNumber(t *testing.T) {
	assert.Equal(t, 3.0, ToNumber(float64(3)))
	assert.Equal(t, 2.5, ToNumber(" 2.5 "))
	assert.Equal(t, 0.0, ToNumber("abc"))
	assert.Equal(t, 0.0, ToNumber(nil))
	assert.Equal(t, 1.0, ToNumber(true))
	assert.Equal(t, 7.0, ToNumber(json.Number("7")))
	assert.Equal(t, 0.0, ToNumber([]interface{}{1}))
}

func TestRecordArrayPicksFirstArray(t *testing.T) {
	r := Record{
		"placements_raw":  "not an array",
		"placements":      []interface{}{map[string]interface{}{"status": "SUCCESSFUL"}},
		"card_placements": []interface{}{},
	}
	arr, ok := r.Array("placements_raw", "placements", "card_placements")
	require.True(t, ok)
	assert.Len(t, arr, 1)

	_, ok = r.Array("placement_events")
	assert.False(t, ok)
}

func TestAsRecord(t *testing.T) {
	_, ok := AsRecord("string")
	assert.False(t, ok)
	_, ok = AsRecord(nil)
	assert.False(t, ok)
	rec, ok := AsRecord(map[string]interface{}{"a": 1})
	assert.True(t, ok)
	assert.Equal(t, 1, rec.Raw("a"))
}

func TestRegistryAddKeepsExisting(t *testing.T) {
	reg := Registry{"acme__prod": json.RawMessage(`{"fi_name":"Acme","partner":"P1","custom":true}`)}

	added, err := reg.Add("acme__prod", RegistryEntry{FIName: "other"})
	require.NoError(t, err)
	assert.False(t, added)
	assert.JSONEq(t, `{"fi_name":"Acme","partner":"P1","custom":true}`, string(reg["acme__prod"]))

	added, err = reg.Add("acme__dev", RegistryEntry{FIName: "Acme", Instance: "dev"})
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "dev", reg.Entry("acme__dev").Instance)
	assert.Equal(t, "P1", reg.Entry("acme__prod").Partner)
	assert.Equal(t, []string{"acme__dev", "acme__prod"}, reg.Keys())
}
