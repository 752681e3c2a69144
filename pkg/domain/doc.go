/*
Package domain contains the core models of the workflow orchestrator.

It defines the shared workflow state and its per-field merge policy, the agent contract,
the graph structure the executors walk, and the chunks emitted while streaming.
This package is kept pure and free of I/O, persistence and transport concerns.

# Key Entities

  - WorkflowState: the record threaded through every agent of a run.
  - Update: the partial state returned by an agent, folded in with WorkflowState.Merge.
  - Agent: a stateless unit identified by a closed AgentID.
  - Graph: agents plus static and conditional edges between them.
  - StreamChunk: one unit of progress emitted per completed agent.
*/
package domain
