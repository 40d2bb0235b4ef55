// Package client contains the SketchHub CLI's transport and local cache
// bootstrap.
//
// # Overview
//
//  1. The Client interface is the REST API contract: auth, models,
//     categories, users, favorites and comments.
//  2. HTTPClient implements it over net/http. It attaches the bearer
//     access token, refreshes an expired token once and replays the call,
//     and maps HTTP statuses onto the sentinel errors in internal/common.
//  3. InitDatabase and RunMigrations open the SQLite cache and apply the
//     embedded goose migrations; NewRepositories binds the session and
//     snapshot repositories to it.
//
// # Error Handling
//
// Transport failures are ErrUnavailable. API failures match the shared
// taxonomy with errors.Is (common.ErrorNotFound, common.ErrorValidation,
// common.ErrorAlreadyFavorited and so on).
package client
