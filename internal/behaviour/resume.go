package behaviour

import "fmt"

// ResumeData starts from everything recorded at the first step, then walks
// the steps in order adding qt data for names not seen yet. On a name
// collision the value already accumulated wins, so for a given name the
// earliest recorded value is kept.
func ResumeData(a Attempt) (map[string]string, error) {
	first, err := a.Step(0)
	if err != nil {
		return nil, fmt.Errorf("%w: resume data needs a first step: %v", ErrCoding, err)
	}
	acc := make(map[string]string)
	for k, v := range first.AllData() {
		acc[k] = v
	}
	for _, st := range a.Steps() {
		for k, v := range st.QtData() {
			if _, seen := acc[k]; !seen {
				acc[k] = v
			}
		}
	}
	return acc, nil
}
