// Package testutil provides shared test utilities for the player.
//
// This package consolidates common test helpers, fixtures, and assertions
// used across the codebase to reduce duplication and ensure consistent
// test patterns.
//
// # Fixtures
//
// The fixtures.go file provides sample protocol data:
//
//   - SampleSections(), SamplePairSections() - stimulus sections
//   - ExplainerAction(), PreloadAction(), TrialAction(), ScoreAction(),
//     FinalAction() - round actions with realistic payloads
//   - SampleScript() - a full experiment run from explainer to final
//
// # Scripted backend
//
// ScriptedBackend implements experiment.Backend over canned responses and
// records every call, so runner and TUI tests need no HTTP server.
//
// # Context helpers
//
// ContextWithTestDeadline creates contexts that respect the test deadline
// with a cleanup buffer, falling back to a fixed duration.
package testutil
