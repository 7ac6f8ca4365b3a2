// Package email provides the transactional email senders used by the
// queue's email task executor: a Postmark client for real delivery and
// a filesystem sender for development.
//
// Senders perform exactly one delivery attempt per call. Retrying
// failed sends is the queue's job, so a sender that fails simply
// returns the error and lets the worker's retry policy decide.
package email
