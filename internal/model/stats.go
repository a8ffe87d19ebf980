package model

// SessionStats summarizes scored answers in a session. Averages use the
// authoritative score (reviewer override when present).
type SessionStats struct {
	Answered    int     `json:"answered"`
	AvgCombined float64 `json:"avg_combined"`
	Highest     float64 `json:"highest"`
	Lowest      float64 `json:"lowest"`
	AvgLexical  float64 `json:"avg_lexical"`
	AvgSemantic float64 `json:"avg_semantic"`
	AvgDelivery float64 `json:"avg_delivery"`
	Strongest   string  `json:"strongest"`
	Weakest     string  `json:"weakest"`
}

// ComputeStats builds session statistics from scored answers. Answers
// without a score are skipped. Returns nil if nothing is scored yet.
func ComputeStats(answers []AnswerView) *SessionStats {
	var st SessionStats
	for _, av := range answers {
		if av.Score == nil {
			continue
		}
		sc := *av.Score
		auth := sc.Authoritative()
		if st.Answered == 0 {
			st.Highest = auth
			st.Lowest = auth
		} else {
			if auth > st.Highest {
				st.Highest = auth
			}
			if auth < st.Lowest {
				st.Lowest = auth
			}
		}
		st.Answered++
		st.AvgCombined += auth
		st.AvgLexical += sc.Lexical
		st.AvgSemantic += sc.Semantic
		st.AvgDelivery += sc.Delivery
	}
	if st.Answered == 0 {
		return nil
	}
	n := float64(st.Answered)
	st.AvgCombined /= n
	st.AvgLexical /= n
	st.AvgSemantic /= n
	st.AvgDelivery /= n

	dims := []struct {
		name string
		avg  float64
	}{
		{"lexical", st.AvgLexical},
		{"semantic", st.AvgSemantic},
		{"delivery", st.AvgDelivery},
	}
	st.Strongest, st.Weakest = dims[0].name, dims[0].name
	hi, lo := dims[0].avg, dims[0].avg
	for _, d := range dims[1:] {
		if d.avg > hi {
			hi, st.Strongest = d.avg, d.name
		}
		if d.avg < lo {
			lo, st.Weakest = d.avg, d.name
		}
	}
	return &st
}
