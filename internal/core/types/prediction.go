package types

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// UnknownLabel is reported when the arg-max index has no entry in the
	// checkpoint's id2label mapping.
	UnknownLabel = "unknown"
)

type PredictionResult struct {
	Label      string
	Confidence float64
	Status     string
}
