// Package service wires the upstream provider, the response cache, the
// baseline tracker and the compute core into the operations served by the
// HTTP API.
//
// Each store is evaluated independently. Batch operations fan out with a
// bounded errgroup and collect one StoreResult per store, so one store's
// upstream failure is reported alongside the others instead of hiding them.
//
// Every operation takes an explicit now; the API passes the request time.
package service
