package dataset

import "fmt"

const DefaultTrainRatio = 0.8

// Split cuts the examples positionally: the first int(ratio*len) go to
// training, the rest to validation. There is no shuffling, so an unchanged
// dataset file always splits the same way.
func Split[T any](examples []T, ratio float64) (train []T, validation []T, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("train ratio must be in (0, 1), got %v", ratio)
	}

	cut := int(ratio * float64(len(examples)))
	return examples[:cut:cut], examples[cut:], nil
}
