/*
Package ports defines the driven ports (interfaces) of the orchestrator.

These interfaces decouple agents, executors and transports from concrete backends,
so text generation, retrieval and storage can be swapped or faked in tests.

# Key Interfaces

  - TextGenerator: chat completion plus schema-constrained classification.
  - LanguageDetector: maps free text onto a language code.
  - Embedder and Retriever: vector embeddings and passage search.
  - ThreadStore: key-value persistence of conversation threads.
  - DistributedLocker: coordinates access to a thread across replicas.
  - Workflow: the run-to-completion and streaming surface consumed by transports.
*/
package ports
