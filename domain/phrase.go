package domain

type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Phrase struct {
	Transcript string  `json:"transcript"`
	Time       float64 `json:"time"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Transcript is the recognized speech of one recording.
type Transcript struct {
	Text       string
	Confidence float64
	Phrases    []*Phrase
}

func (p *Phrase) Clone() *Phrase {
	if p == nil {
		return nil
	}
	out := *p
	out.Words = append([]Word(nil), p.Words...)
	return &out
}
