package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeValueDecodesBackendShapes(t *testing.T) {
	cases := map[string]struct {
		raw   string
		valid bool
		want  float64
	}{
		"number":         {raw: `8.25`, valid: true, want: 8.25},
		"decimal string": {raw: `"7.50"`, valid: true, want: 7.5},
		"zero":           {raw: `0`, valid: true, want: 0},
		"null":           {raw: `null`},
		"empty string":   {raw: `""`},
		"text":           {raw: `"abc"`},
		"negative":       {raw: `-1`},
		"nan string":     {raw: `"NaN"`},
		"object":         {raw: `{"v":1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var g GradeValue
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &g))
			assert.Equal(t, tc.valid, g.Valid())
			if tc.valid {
				v, _ := g.Float()
				assert.InDelta(t, tc.want, v, 1e-9)
			}
		})
	}
}

func TestBimesterSlotIsExact(t *testing.T) {
	slot, ok := BimesterSlot("3rd bimester")
	require.True(t, ok)
	assert.Equal(t, 2, slot)

	for _, label := range []string{"3rd Bimester", " 3rd bimester", "5th bimester", ""} {
		_, ok := BimesterSlot(label)
		assert.False(t, ok, label)
	}
}

func TestDateDecodingIsLenient(t *testing.T) {
	var payload struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2024-03-05","b":"2024-03-05T22:10:00Z","c":"05/03/2024","d":null}`), &payload))

	assert.Equal(t, "05/03/2024", payload.A.Display())
	assert.Equal(t, "05/03/2024", payload.B.Display())
	assert.False(t, payload.C.Valid())
	assert.Equal(t, "invalid date", payload.C.Display())
	assert.Equal(t, "05/03/2024", payload.C.String())
	assert.False(t, payload.D.Valid())
}

func TestParseRoleAliases(t *testing.T) {
	assert.Equal(t, RoleCoordinator, ParseRole("Coordenador"))
	assert.Equal(t, RoleITStaff, ParseRole("ti"))
	assert.Equal(t, RoleTeacher, ParseRole("professor"))
	assert.Equal(t, RoleGuardian, ParseRole("responsavel"))
	assert.Equal(t, RoleNone, ParseRole("aluno"))
	assert.True(t, RoleDirector.IsStaff())
	assert.False(t, RoleTeacher.IsStaff())

	assert.Equal(t, RoleDirector, UserProfile{Role: "director", Cargo: "professor"}.ResolvedRole())
	assert.Equal(t, RoleTeacher, UserProfile{Cargo: "professor"}.ResolvedRole())
}

func TestStudentClassNameFallback(t *testing.T) {
	assert.Equal(t, "N/A", Student{}.ClassName())
	assert.Equal(t, "1A", Student{Class: &ClassRef{Name: "1A"}}.ClassName())
}
