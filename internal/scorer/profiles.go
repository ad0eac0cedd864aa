package scorer

import "fmt"

// Weights splits a candidate's score across the three signals. The three
// components always sum to 1.
type Weights struct {
	Content    float64
	Behavior   float64
	Popularity float64
}

// Named weight profiles. Deployments pick a profile by name; arbitrary
// weights exist only for tests and experiments.
const (
	ProfileBalanced      = "balanced"
	ProfileContentHeavy  = "content-heavy"
	ProfileBehaviorHeavy = "behavior-heavy"
	ProfileColdStart     = "cold-start-fallback"
)

var profiles = map[string]Weights{
	ProfileBalanced:      {Content: 0.5, Behavior: 0.3, Popularity: 0.2},
	ProfileContentHeavy:  {Content: 0.7, Behavior: 0.2, Popularity: 0.1},
	ProfileBehaviorHeavy: {Content: 0.2, Behavior: 0.6, Popularity: 0.2},
	ProfileColdStart:     {Content: 0, Behavior: 0, Popularity: 1},
}

// ProfileWeights resolves a profile name to its weights.
func ProfileWeights(name string) (Weights, error) {
	w, ok := profiles[name]
	if !ok {
		return Weights{}, fmt.Errorf("unknown weight profile %q", name)
	}
	return w, nil
}

// ColdStartWeights is the profile forced whenever the user has no preference
// signal: pure popularity, so new users always get a deterministic ranking.
func ColdStartWeights() Weights {
	return profiles[ProfileColdStart]
}
