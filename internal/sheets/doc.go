// Package sheets implements the storage port on top of a spreadsheet
// bridge: a remote script that receives POST {key, command, payload} and
// answers {status, message, data}.
//
// The bridge is slow and offers no transactions. Session merges are done
// client-side and a racing first contact is resolved by re-reading the
// user row. No call is retried.
package sheets
