// Package onoma classifies personal names by language of origin using a
// trained character-level LSTM checkpoint.
//
// Training happens in cmd/onoma; this package loads the resulting
// checkpoint and serves predictions:
//
//	clf, err := onoma.New(onoma.WithCheckpoint("models/onoma.json"))
//	if err != nil { ... }
//	pred, err := clf.Classify("Gonzalez")
//	fmt.Println(pred.Category, pred.Confidence)
package onoma
