package present

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/ods/internal/domain"
)

func TestClassified(t *testing.T) {
	prob := 0.87
	view := Classified(domain.ClassificationResult{Label: 3, LabelName: "Salud", Prob: &prob})

	assert.Equal(t, "Predicción: Salud (ODS 3)", view.Prediction)
	assert.Equal(t, "Probabilidad: 87.00%", view.Probability)
	assert.True(t, view.OK)
}

func TestProbability(t *testing.T) {
	zero, full := 0.0, 1.0

	assert.Equal(t, MsgProbUnavailable, Probability(domain.ClassificationResult{}))
	assert.Equal(t, MsgProbUnavailable, Probability(domain.ClassificationResult{Prob: &zero}))
	assert.Equal(t, "Probabilidad: 100.00%", Probability(domain.ClassificationResult{Prob: &full}))
}

func TestRetrained(t *testing.T) {
	view := Retrained(domain.TrainingMetrics{F1: 0.8123, Precision: 0.8, Recall: 0.7896})

	assert.Equal(t, MsgRetrainOK, view.Prediction)
	assert.Equal(t, "F1: 0.812 | Precision: 0.800 | Recall: 0.790", view.Probability)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "El backend requiere al menos 30 registros. Tienes: 29", InsufficientRecords(30, 29))
	assert.Contains(t, UnsupportedFormat("datos.csv"), "datos.csv")
	assert.Equal(t, View{Prediction: MsgClassifyFailed}, Failure(MsgClassifyFailed))
}
