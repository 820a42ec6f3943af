// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package pipeline contains the resumable, memory-governed batch
// orchestrator.
//
// A run discovers work items from an input directory, carves them into
// ordered batches, and drives each batch through the fallback router,
// the embedder, and the downstream store. Progress is checkpointed
// strictly after each batch's commit, so a crash at any point replays
// at most one batch, and idempotent downstream commits make that replay
// safe. The memory governor is consulted between batches (and at a
// configurable stride within them); its escalation ladder is
// reclamation, then batch shrinking, then a bounded pause, with
// persistent pressure across consecutive batches turning fatal only by
// the orchestrator's decision.
package pipeline
