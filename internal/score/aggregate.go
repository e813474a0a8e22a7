package score

// AggregateForSubmission reduces the takes of one session to the single
// record persisted as the canonical result: the take with the maximum final
// percent wins, first occurrence on tie. The whole winning take is carried
// through, sub-metrics included. Returns false when takes is empty.
func AggregateForSubmission(takes []TakeScore) (TakeScore, bool) {
	if len(takes) == 0 {
		return TakeScore{}, false
	}
	best := 0
	for i := 1; i < len(takes); i++ {
		if takes[i].Final.Percent > takes[best].Final.Percent {
			best = i
		}
	}
	return takes[best], true
}
