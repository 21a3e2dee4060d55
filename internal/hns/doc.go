// Package hns provides an HTTP client for the Hack or Snooze story API.
//
// # Overview
//
// The client is a thin typed wrapper: it owns no state, performs no retries
// and issues each call at most once. Callers (the state package) decide what
// a failure means for the in-memory model.
//
// # Architecture
//
//   - client.go: HTTP client, request building and response handling
//   - types.go: data structures mirroring the API schema
//   - errors.go: the error taxonomy and status classification
//   - token.go: unverified inspection of session tokens
//
// # API Endpoints
//
//   - GET    /stories                          list stories (skip, limit)
//   - POST   /stories                          create story, token in body
//   - DELETE /stories/{id}                     delete story, token in body
//   - POST   /users/{username}/favorites/{id}  add favorite, token in body
//   - DELETE /users/{username}/favorites/{id}  remove favorite, token in body
//   - GET    /users/{username}?token=          fetch user
//   - POST   /login                            {user: {username, password}}
//   - POST   /signup                           {user: {username, password, name}}
//
// # Error Handling
//
// Every error returned by Client is an *Error that unwraps to exactly one
// kind sentinel:
//
//   - ErrUnauthorized: 401 or 403, bad or expired credentials
//   - ErrConflict: 409, for example a username that is already taken
//   - ErrNotFound: 404, the story or user no longer exists
//   - ErrBadRequest: any other 4xx, or an input rejected before sending
//   - ErrNetwork: no response was received
//   - ErrServer: 5xx or an undecodable success payload
//
// Use errors.Is to branch on the kind and errors.As to reach the status code
// and the message the server put in its error body.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Set Accept: application/json and User-Agent: snooze/0.1
//   - Carry a random X-Request-Id that also appears in the debug log
//   - Have a 10-second timeout unless WithTimeout says otherwise
package hns
