// Package state holds the client-side model of the story service: the
// global story list, the signed-in user, and that user's own stories and
// favorites.
//
// # Overview
//
// Three collections overlap. StoryList is the authoritative superset. A User
// keeps its own stories and its favorites as copies of the same logical
// stories; any difference between a user copy and the list entry with the
// same id is a bug, and StoryList.Reconcile repairs it after a refetch.
//
// # Mutation Policies
//
// Two opposite policies are used on purpose:
//
//   - Story create and delete are fail-atomic. The server is asked first and
//     local collections change only after it agrees, so a story never looks
//     deleted while the server still has it.
//   - Favorite add and remove are optimistic. The favorites set changes at
//     once and is rolled back if the server refuses.
//
// Cross-collection changes happen only inside StoryList.Create,
// StoryList.Remove and StoryList.Reconcile, which hold the list lock and the
// user lock together (always in that order).
//
// # Favorite States
//
// Each story moves through:
//
//	NotFavorited --AddFavorite--> PendingAdd --ok--> Favorited
//	PendingAdd --fail--> NotFavorited
//	Favorited --RemoveFavorite--> PendingRemove --ok--> NotFavorited
//	PendingRemove --fail--> Favorited
//
// A second toggle for a story in a Pending state fails with
// ErrFavoritePending instead of racing the first.
//
// # Error Handling
//
// Remote failures are wrapped with the operation name and keep their hns kind
// (errors.Is(err, hns.ErrUnauthorized) and so on). hns.ErrNotFound is benign
// for deletes and favorites: the operation collapses to a no-op. Resume is
// the only call that swallows errors, returning nil instead.
//
// # Concurrency
//
// Locks are held only while copying slices, never across network calls.
// Accessors return copies. Logging goes to the zerolog logger carried by the
// context, if any.
package state
