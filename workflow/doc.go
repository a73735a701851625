// Package workflow provides the stage-orchestration engine for company
// analysis runs.
//
// An OrchestrationEngine schedules a fixed set of analysis stages over a
// shared ExecutionState, either sequentially or as a concurrent fan-out
// with a full barrier. Each stage retrieves its domain's documents
// through the hybrid retriever, calls the generation service with a
// per-stage timeout, and commits exactly one result or error to the
// state. Stage failures are tolerated: the run degrades to a partial
// success and fails outright only when request validation fails, every
// stage fails, or the run's wall-clock budget is exceeded.
//
// # Stage Graph
//
// The culture, work-life balance, management, and compensation stages
// are mutually independent and form the parallel group. The career
// growth stage consumes their committed findings and runs only after
// the group's barrier. Running the graph sequentially or in parallel
// yields the same results when the external services are deterministic.
//
// # Usage
//
//	cfg := workflow.DefaultConfig()
//	engine, err := workflow.NewEngine(cfg, repo, retriever, provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Release()
//
//	report, err := engine.Analyze(ctx, workflow.AnalysisRequest{
//	    Company: "acme",
//	    Query:   "how is work-life balance?",
//	})
package workflow
