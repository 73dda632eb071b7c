package actions

// A list of status codes used inside the application. For more details see: https://httpstatuses.com/

// OK - success
const OK = 200

// BadRequest - sent when a bad request was submitted by the client
const BadRequest = 400

// AccessDenied - the action is switched off or the client may not use it
const AccessDenied = 403

// NotFound - the resource identified by the given ID does not exist
const NotFound = 404

// ValidationFailed - the request did not pass field verification
const ValidationFailed = 422

// TooManyRequests - the client exceeded its request rate
const TooManyRequests = 429

// ServerError - internal server error
const ServerError = 500

// Unavailable - the data could not be produced, the client should retry later
const Unavailable = 503
