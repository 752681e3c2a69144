/*
Package dsl provides a fluent builder for workflow graphs.

Graphs are assembled from agents and edges in code, validated once by Build, and then
shared read-only by every run.

Example usage:

	b := dsl.New("workflow")
	b.Start(domain.Supervisor)

	b.Add(agents.NewSupervisor(gen)).
		When(func(s domain.WorkflowState) string { return string(s.Next) }).
		Branch("summarizer", domain.Summarizer).
		Branch("general", domain.General)

	b.Add(agents.NewSummarizer(gen)).Go(domain.End).Final()
	b.Add(agents.NewGeneral(gen)).Go(domain.End).Final()

	graph, err := b.Build()
*/
package dsl
