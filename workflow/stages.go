package workflow

import "github.com/blindsight-ai/blindsight/core"

// The stage graph. The parallel group members are mutually independent
// and may run concurrently; post-barrier stages consume the group's
// committed results and run only after every group member has completed.
var (
	parallelGroup = []core.StageName{
		core.StageCompanyCulture,
		core.StageWorkLifeBalance,
		core.StageManagement,
		core.StageSalaryBenefits,
	}

	postBarrier = []core.StageName{
		core.StageCareerGrowth,
	}
)

// stageInstructions maps each stage of the closed set to its analysis
// focus. Adding a domain means adding a core.StageName constant and an
// entry here.
var stageInstructions = map[core.StageName]string{
	core.StageCompanyCulture: "Assess the company culture: values, collaboration, " +
		"openness, and how employees describe the day-to-day atmosphere.",
	core.StageWorkLifeBalance: "Assess work-life balance: working hours, overtime, " +
		"schedule flexibility, remote work, and vacation in practice.",
	core.StageManagement: "Assess management quality: leadership competence, " +
		"communication, feedback culture, and decision making.",
	core.StageSalaryBenefits: "Assess compensation: salary competitiveness, raises, " +
		"bonuses, and the benefits package.",
	core.StageCareerGrowth: "Assess career growth: promotion opportunities, skill " +
		"development, mentoring, and long-term prospects. Weigh the findings of the " +
		"other analysis areas where they bear on career outlook.",
}

// declaredOrder lists every stage in scheduling order: the parallel
// group first, then the post-barrier dependents.
func declaredOrder() []core.StageName {
	order := make([]core.StageName, 0, len(parallelGroup)+len(postBarrier))
	order = append(order, parallelGroup...)
	order = append(order, postBarrier...)
	return order
}

// dependsOnGroup reports whether the stage must wait for the parallel
// group's barrier.
func dependsOnGroup(stage core.StageName) bool {
	for _, s := range postBarrier {
		if s == stage {
			return true
		}
	}
	return false
}
