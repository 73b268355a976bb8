package service

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

func TestGroupGradesSkipsNegativeValues(t *testing.T) {
	table := GroupGrades([]models.Grade{
		grade(1, "Math", models.Bimester1, 7.0),
		grade(2, "Math", models.Bimester3, 9.0),
		grade(3, "Math", models.Bimester2, -1),
	})

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "Math", row.Subject)
	assert.Equal(t, floatPtr(7.0), row.N1)
	assert.Nil(t, row.N2)
	assert.Equal(t, floatPtr(9.0), row.N3)
	assert.Nil(t, row.N4)
	require.NotNil(t, row.Average)
	assert.InDelta(t, 8.0, *row.Average, 1e-9)
}

func TestGroupGradesAverageIsAbsentWithoutValidSlots(t *testing.T) {
	var nullValue models.Grade
	require.NoError(t, json.Unmarshal([]byte(`{"id":4,"subject_name":"History","bimester":"2nd bimester","value":null}`), &nullValue))
	var textValue models.Grade
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"subject_name":"History","bimester":"3rd bimester","value":"n/a"}`), &textValue))

	table := GroupGrades([]models.Grade{nullValue, textValue})
	require.Len(t, table.Rows, 1)
	assert.Nil(t, table.Rows[0].Average)
	for _, slot := range table.Rows[0].Slots() {
		assert.Nil(t, slot)
	}
}

func TestGroupGradesFallsBackToUnknownSubject(t *testing.T) {
	table := GroupGrades([]models.Grade{grade(1, "", models.Bimester4, 6.5)})
	require.Len(t, table.Rows, 1)
	assert.Equal(t, UnknownSubject, table.Rows[0].Subject)
	assert.Equal(t, floatPtr(6.5), table.Rows[0].N4)
}

func TestGroupGradesDropsUnrecognisedLabels(t *testing.T) {
	table := GroupGrades([]models.Grade{
		grade(1, "Art", "5th bimester", 10),
		grade(2, "Art", "1st Bimester", 10),
		grade(3, "Art", models.Bimester2, 5),
	})

	require.Len(t, table.Rows, 1)
	assert.Equal(t, 2, table.Unassigned)
	assert.Nil(t, table.Rows[0].N1)
	assert.Equal(t, floatPtr(5), table.Rows[0].N2)
	assert.Equal(t, floatPtr(5), table.Rows[0].Average)
}

func TestGroupGradesSortsSubjects(t *testing.T) {
	table := GroupGrades([]models.Grade{
		grade(1, "Portuguese", models.Bimester1, 8),
		grade(2, "Biology", models.Bimester1, 8),
		grade(3, "Math", models.Bimester1, 8),
	})

	subjects := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		subjects = append(subjects, row.Subject)
	}
	assert.Equal(t, []string{"Biology", "Math", "Portuguese"}, subjects)
}

func TestGroupGradesIsOrderIndependent(t *testing.T) {
	grades := []models.Grade{
		grade(1, "Math", models.Bimester1, 7),
		grade(2, "Math", models.Bimester1, 4),
		grade(3, "Math", models.Bimester2, 6),
		grade(4, "Physics", models.Bimester3, 9.5),
		grade(5, "Physics", models.Bimester3, -2),
		grade(6, "Chemistry", "bogus", 3),
		grade(7, "Chemistry", models.Bimester4, 10),
		grade(8, "", models.Bimester1, 5),
	}
	want := GroupGrades(grades)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]models.Grade(nil), grades...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, GroupGrades(shuffled))
	}

	// Larger record id wins the Math 1st bimester slot.
	assert.Equal(t, "Math", want.Rows[1].Subject)
	assert.Equal(t, floatPtr(4), want.Rows[1].N1)
}
