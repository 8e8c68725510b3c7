// Package matching enriches a resolved video with the catalog track it most
// likely corresponds to.
//
// Matching is best-effort. A title is split into artist/title interpretations
// by a Decomposer, a de-duplicated list of search queries is built, results are
// scored by token similarity, and the single best candidate above MinScore is
// returned. Search failures degrade to no match and are never returned.
package matching
