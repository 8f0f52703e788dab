package junit

import (
	"time"

	"github.com/ethpandaops/junitoor/pkg/resulttree"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// at returns a timestamp offset from epoch.
func at(offset time.Duration) *time.Time {
	t := epoch.Add(offset)

	return &t
}

func passedStep(sentence string, d time.Duration) *resulttree.Step {
	return &resulttree.Step{
		Sentence:  sentence,
		State:     resulttree.StatePassed,
		StartedAt: at(0),
		EndedAt:   at(d),
	}
}

func failedStep(sentence, reason, trace string) *resulttree.Step {
	return &resulttree.Step{
		Sentence:  sentence,
		State:     resulttree.StateFailed,
		StartedAt: at(0),
		EndedAt:   at(250 * time.Millisecond),
		Failure:   &resulttree.Failure{Reason: reason, Traceback: trace},
	}
}

// loginSuite has one passing scenario with two steps and one failing
// scenario with a passing and a failing step.
func loginSuite() *resulttree.Suite {
	return &resulttree.Suite{
		ID:        1,
		Path:      "features/login.feature",
		Tags:      []string{"auth"},
		State:     resulttree.StateFailed,
		StartedAt: at(0),
		EndedAt:   at(2 * time.Second),
		Scenarios: []*resulttree.Scenario{
			{
				ID:       1,
				Sentence: "Successful login",
				Tags:     []string{"smoke"},
				Steps: []*resulttree.Step{
					passedStep("Given a registered user", 100*time.Millisecond),
					passedStep("When they log in", 200*time.Millisecond),
				},
			},
			{
				ID:       2,
				Sentence: "Locked account",
				Steps: []*resulttree.Step{
					passedStep("Given a locked user", 100*time.Millisecond),
					failedStep(
						"Then they see an error",
						"AssertionError: expected error banner",
						"Traceback (most recent call last):\n  \x1b[31mAssertionError\x1b[0m: expected error banner",
					),
				},
			},
		},
	}
}
