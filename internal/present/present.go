// Package present renders results and failures as the text shown to users.
package present

import (
	"fmt"

	"github.com/pbaille/ods/internal/domain"
)

// User-facing messages
const (
	MsgEmptyText       = "Por favor ingresa un texto antes de clasificar."
	MsgClassifyFailed  = "Error al clasificar el texto."
	MsgProbUnavailable = "Probabilidad no disponible."
	MsgNoFile          = "Por favor selecciona un archivo .xlsx o .json"
	MsgRetrainOK       = "Modelo reentrenado exitosamente."
	MsgRetrainFailed   = "❌ Error al reentrenar el modelo."
	MsgRetrainBusy     = "Ya hay un reentrenamiento en curso. Espera a que termine."
	MsgSuperseded      = "Clasificación reemplazada por una consulta más reciente."
)

// View is the display surface: a prediction line and a probability line
type View struct {
	Prediction  string `json:"prediccion"`
	Probability string `json:"probabilidad"`
	OK          bool   `json:"ok"`
}

// Prediction formats the predicted category
func Prediction(r domain.ClassificationResult) string {
	return fmt.Sprintf("Predicción: %s (ODS %d)", r.LabelName, r.Label)
}

// Probability formats the confidence as a percentage with two decimals
func Probability(r domain.ClassificationResult) string {
	if !r.HasProb() {
		return MsgProbUnavailable
	}
	return fmt.Sprintf("Probabilidad: %.2f%%", *r.Prob*100)
}

// Metrics formats retrain metrics with three decimals
func Metrics(m domain.TrainingMetrics) string {
	return fmt.Sprintf("F1: %.3f | Precision: %.3f | Recall: %.3f", m.F1, m.Precision, m.Recall)
}

// InsufficientRecords tells the user how many records were found
func InsufficientRecords(min, count int) string {
	return fmt.Sprintf("El backend requiere al menos %d registros. Tienes: %d", min, count)
}

// UnsupportedFormat names the rejected file
func UnsupportedFormat(name string) string {
	return fmt.Sprintf("Formato no soportado: %s. Usa un archivo .xlsx o .json", name)
}

// FileNotFound names a training file that does not exist
func FileNotFound(name string) string {
	return fmt.Sprintf("No se encontró el archivo: %s", name)
}

// Classified is the view for a successful classification
func Classified(r domain.ClassificationResult) View {
	return View{Prediction: Prediction(r), Probability: Probability(r), OK: true}
}

// Retrained is the view for a successful retrain
func Retrained(m domain.TrainingMetrics) View {
	return View{Prediction: MsgRetrainOK, Probability: Metrics(m), OK: true}
}

// Failure shows msg in the prediction line and clears the probability line
func Failure(msg string) View {
	return View{Prediction: msg}
}
